package transport

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// The chamber exposes one primary service with six fixed characteristics.
const (
	// ServiceUUID is the chamber's primary GATT service.
	ServiceUUID = "8b830001-57a1-4f9e-ba2a-9e12d8f6c3b7"

	EnvironmentCharUUID     = "8b830002-57a1-4f9e-ba2a-9e12d8f6c3b7"
	ControlTargetsCharUUID  = "8b830003-57a1-4f9e-ba2a-9e12d8f6c3b7"
	StageStateCharUUID      = "8b830004-57a1-4f9e-ba2a-9e12d8f6c3b7"
	OverrideCharUUID        = "8b830005-57a1-4f9e-ba2a-9e12d8f6c3b7"
	StatusCharUUID          = "8b830006-57a1-4f9e-ba2a-9e12d8f6c3b7"
	StageThresholdsCharUUID = "8b830007-57a1-4f9e-ba2a-9e12d8f6c3b7"
)

// Role is the logical function of one of the six chamber characteristics.
type Role string

const (
	RoleEnvironment     Role = "environment"
	RoleControlTargets  Role = "control_targets"
	RoleStageState      Role = "stage_state"
	RoleOverride        Role = "override"
	RoleStatus          Role = "status"
	RoleStageThresholds Role = "stage_thresholds"
)

// RoleTable returns the role -> characteristic UUID mapping in its
// canonical order. The order is stable so characteristic mapping, error
// reports, and CLI output enumerate roles deterministically.
func RoleTable() *orderedmap.OrderedMap[Role, string] {
	m := orderedmap.New[Role, string]()
	m.Set(RoleEnvironment, EnvironmentCharUUID)
	m.Set(RoleControlTargets, ControlTargetsCharUUID)
	m.Set(RoleStageState, StageStateCharUUID)
	m.Set(RoleOverride, OverrideCharUUID)
	m.Set(RoleStatus, StatusCharUUID)
	m.Set(RoleStageThresholds, StageThresholdsCharUUID)
	return m
}

// StreamingRoles are the roles whose characteristics push notifications;
// subscriptions on both are mandatory for a connection to reach Ready.
var StreamingRoles = []Role{RoleEnvironment, RoleStatus}
