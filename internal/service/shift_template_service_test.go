package service

import (
	"context"
	"errors"
	"testing"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	pkgerrors "clinic-ledger/backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestShiftTemplateService_Create(t *testing.T) {
	env := setupTestEnv(at(10, 10, 0))
	admin := env.seedUser("admin-1", model.RoleAdmin)

	resp, err := env.templates.Create(context.Background(), admin, &dto.CreateShiftTemplateRequest{
		Name: "Soir", StartHour: intPtr(16), EndHour: intPtr(0), Type: "EVENING",
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if !resp.Overnight {
		t.Error("16–00 应识别为跨夜模板")
	}
	if resp.Version != 1 {
		t.Errorf("期望初始版本=1，实际=%d", resp.Version)
	}

	_, err = env.templates.Create(context.Background(), admin, &dto.CreateShiftTemplateRequest{
		Name: "Bad", StartHour: intPtr(8), EndHour: intPtr(8), Type: "MORNING",
	})
	if !errors.Is(err, ErrTemplateHoursEqual) {
		t.Errorf("期望 ErrTemplateHoursEqual，实际: %v", err)
	}
}

func TestShiftTemplateService_Create_Forbidden(t *testing.T) {
	env := setupTestEnv(at(10, 10, 0))
	user := env.seedUser("user-a", model.RoleUser)

	_, err := env.templates.Create(context.Background(), user, &dto.CreateShiftTemplateRequest{
		Name: "Matin", StartHour: intPtr(8), EndHour: intPtr(16), Type: "MORNING",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
}

func TestShiftTemplateService_List_OrderedByStartHour(t *testing.T) {
	env := setupTestEnv(at(10, 10, 0))
	env.seedDefaultTemplates()

	list, err := env.templates.List(context.Background())
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 3 || list[0].Name != "Nuit" || list[2].Name != "Soir" {
		t.Errorf("期望按开始小时排序 Nuit/Matin/Soir，实际=%v", list)
	}
}

func TestShiftTemplateService_Update_OptimisticLock(t *testing.T) {
	env := setupTestEnv(at(10, 10, 0))
	env.seedDefaultTemplates()
	admin := env.seedUser("admin-1", model.RoleAdmin)

	name := "Matin long"
	resp, err := env.templates.Update(context.Background(), admin, "tpl-matin", &dto.UpdateShiftTemplateRequest{
		Name: &name, EndHour: intPtr(17), Version: 1,
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Version != 2 || resp.EndHour != 17 {
		t.Errorf("期望版本=2 结束=17，实际 %d/%d", resp.Version, resp.EndHour)
	}

	// 使用过期版本
	_, err = env.templates.Update(context.Background(), admin, "tpl-matin", &dto.UpdateShiftTemplateRequest{
		Name: &name, Version: 1,
	})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}

	_, err = env.templates.Update(context.Background(), admin, "tpl-matin", &dto.UpdateShiftTemplateRequest{
		StartHour: intPtr(17), Version: 2,
	})
	if !errors.Is(err, ErrTemplateHoursEqual) {
		t.Errorf("期望 ErrTemplateHoursEqual，实际: %v", err)
	}

	_, err = env.templates.Update(context.Background(), admin, "missing", &dto.UpdateShiftTemplateRequest{Version: 1})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("期望 ErrTemplateNotFound，实际: %v", err)
	}
}

func TestShiftTemplateService_Delete(t *testing.T) {
	env := setupTestEnv(at(10, 10, 0))
	env.seedDefaultTemplates()
	admin := env.seedUser("admin-1", model.RoleAdmin)

	if err := env.templates.Delete(context.Background(), admin, "tpl-nuit"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if err := env.templates.Delete(context.Background(), admin, "tpl-nuit"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("重复删除期望 ErrTemplateNotFound，实际: %v", err)
	}
}
