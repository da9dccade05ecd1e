package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/pkg/database"
	applogger "clinic-ledger/backend/pkg/logger"
)

// env 子命令共享的运行环境
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func openEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = "clinicctl"
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		sqlDB.Close()
	}
	e.logger.Sync()
}

// ── migrate ──

func newMigrateCmd(configPath *string) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations (or roll back with --down)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			sqlDB, err := e.db.DB()
			if err != nil {
				return err
			}
			if down > 0 {
				if err := database.RollbackMigrations(sqlDB, down, e.logger); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", down)
				return nil
			}
			if err := database.RunMigrations(sqlDB, e.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "回滚的迁移版本数")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			sqlDB, err := e.db.DB()
			if err != nil {
				return err
			}
			state, err := database.MigrationStatus(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatMigrationState(state))
			return nil
		},
	})
	return cmd
}

func formatMigrationState(s database.MigrationState) string {
	switch {
	case s.Empty:
		return "version: none"
	case s.Dirty:
		return fmt.Sprintf("version: %d (dirty)", s.Version)
	default:
		return fmt.Sprintf("version: %d", s.Version)
	}
}

// ── seed-templates ──

// defaultTemplates 诊所默认的三班制
var defaultTemplates = []model.ShiftTemplate{
	{Name: "Matin", StartHour: 8, EndHour: 16, Type: "MORNING"},
	{Name: "Soir", StartHour: 16, EndHour: 0, Type: "EVENING"},
	{Name: "Nuit", StartHour: 0, EndHour: 8, Type: "NIGHT"},
}

func newSeedTemplatesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-templates",
		Short: "Create the default Matin/Soir/Nuit shift templates if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			repo := repository.NewRepository(e.db)
			return seedTemplates(cmd.Context(), repo.ShiftTemplate, cmd.OutOrStdout())
		},
	}
}

// seedTemplates 按名称（忽略大小写）跳过已存在的模板
func seedTemplates(ctx context.Context, templates repository.ShiftTemplateRepository, out io.Writer) error {
	existing, err := templates.List(ctx)
	if err != nil {
		return fmt.Errorf("查询班次模板失败: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		present[strings.ToLower(t.Name)] = true
	}

	for _, t := range defaultTemplates {
		if present[strings.ToLower(t.Name)] {
			fmt.Fprintf(out, "skip %s (exists)\n", t.Name)
			continue
		}
		tpl := t
		tpl.Version = 1
		if err := templates.Create(ctx, &tpl); err != nil {
			return fmt.Errorf("创建班次模板 %s 失败: %w", t.Name, err)
		}
		fmt.Fprintf(out, "created %s %02d:00-%02d:00\n", tpl.Name, tpl.StartHour, tpl.EndHour)
	}
	return nil
}

// ── create-admin ──

func newCreateAdminCmd(configPath *string) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an activated administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			repo := repository.NewRepository(e.db)
			user, err := createAdmin(cmd.Context(), repo.User, email, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", user.Email, user.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "管理员邮箱")
	cmd.Flags().StringVar(&name, "name", "", "管理员姓名")
	cmd.Flags().StringVar(&password, "password", "", "登录密码（至少 8 位）")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

var errAdminExists = errors.New("该邮箱已被注册")

func createAdmin(ctx context.Context, users repository.UserRepository, email, name, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("email 与 name 不能为空")
	}
	if len(password) < 8 || len(password) > 72 {
		return nil, fmt.Errorf("密码长度必须在 8-72 之间")
	}

	_, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, errAdminExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Activated:    true,
	}
	user.Version = 1
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建管理员失败: %w", err)
	}
	return user, nil
}
