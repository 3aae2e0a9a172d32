package domain

import "time"

// RoleCreatedEvent is emitted after a role and its default policy are provisioned.
type RoleCreatedEvent struct {
	EventID     string
	RoleID      string
	RoleName    string
	DisplayName string
	PolicyID    string
	CreatedAt   time.Time
	Metadata    map[string]any
}

// RoleUpdatedEvent is emitted after a role is modified through a patch.
type RoleUpdatedEvent struct {
	EventID       string
	RoleID        string
	RoleName      string
	UpdatedFields []string
	UpdatedAt     time.Time
	Metadata      map[string]any
}

// PolicyUpdatedEvent is emitted after a policy's rule list is replaced.
type PolicyUpdatedEvent struct {
	EventID    string
	PolicyID   string
	PolicyName string
	RuleCount  int
	UpdatedAt  time.Time
	Metadata   map[string]any
}
