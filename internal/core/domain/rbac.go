package domain

import "strings"

// PolicyType classifies a policy.
type PolicyType string

const (
	// PolicyTypeAccessControl marks policies evaluated for catalog operations.
	PolicyTypeAccessControl PolicyType = "AccessControl"
)

// Operation enumerates the catalog operations a rule can govern.
type Operation string

const (
	OperationSuggestDescription Operation = "SuggestDescription"
	OperationSuggestTags        Operation = "SuggestTags"
	OperationUpdateDescription  Operation = "UpdateDescription"
	OperationUpdateTags         Operation = "UpdateTags"
	OperationUpdateOwner        Operation = "UpdateOwner"
	OperationUpdateLineage      Operation = "UpdateLineage"
	OperationUpdateTeams        Operation = "UpdateTeams"
	OperationDecryptTokens      Operation = "DecryptTokens"
)

// Operations lists every known operation in display order.
func Operations() []Operation {
	return []Operation{
		OperationSuggestDescription,
		OperationSuggestTags,
		OperationUpdateDescription,
		OperationUpdateTags,
		OperationUpdateOwner,
		OperationUpdateLineage,
		OperationUpdateTeams,
		OperationDecryptTokens,
	}
}

// IsValid reports whether the operation is one of the known catalog operations.
func (o Operation) IsValid() bool {
	for _, known := range Operations() {
		if o == known {
			return true
		}
	}
	return false
}

// EntityReference points at another catalog entity without embedding it.
type EntityReference struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// Rule grants or denies a single operation within a policy.
type Rule struct {
	Name         string    `json:"name"`
	Operation    Operation `json:"operation"`
	Allow        bool      `json:"allow"`
	Enabled      bool      `json:"enabled"`
	UserRoleAttr string    `json:"userRoleAttr,omitempty"`
}

// RuleName derives the canonical rule name from its policy and operation.
func RuleName(policyName string, operation Operation) string {
	return policyName + "-" + string(operation)
}

// Policy is an ordered rule list owned by exactly one role. Rule mutations
// replace the whole list rather than patching individual entries.
type Policy struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	PolicyType PolicyType `json:"policyType"`
	Rules      []Rule     `json:"rules"`
}

// Role groups users under a shared access-control policy.
type Role struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Description string            `json:"description,omitempty"`
	Policy      *EntityReference  `json:"policy,omitempty"`
	Users       []EntityReference `json:"users,omitempty"`
}

// Reference returns the role as an entity reference.
func (r Role) Reference() EntityReference {
	return EntityReference{ID: r.ID, Type: "role", Name: r.Name, DisplayName: r.DisplayName}
}

// EqualNameFold reports whether two role names collide under the catalog's
// case-insensitive uniqueness rule.
func EqualNameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
