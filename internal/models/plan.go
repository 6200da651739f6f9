package models

// Plan is a student's private, mutable copy of a template's requirement
// tree. TemplateName is a provenance label, not a live reference.
type Plan struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	UserID       int64  `db:"user_id" json:"user_id"`
	TemplateName string `db:"template_name" json:"template_name"`
}

// PlanRequirement mirrors Requirement for plan-owned trees and adds the
// manual completion override.
type PlanRequirement struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Amount         int    `db:"amount" json:"amount"`
	IsText         bool   `db:"is_text" json:"is_text"`
	ForceCompleted bool   `db:"force_completed" json:"force_completed"`
	PlanID         int64  `db:"plan_id" json:"plan_id"`
	CourseGroupID  *int64 `db:"course_group_id" json:"course_group_id,omitempty"`
	ParentID       *int64 `db:"parent_id" json:"parent_id,omitempty"`
}
