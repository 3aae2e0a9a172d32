package console

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "gomodules.xyz/jsonpatch/v2"
	"go.uber.org/zap"

	"github.com/arklim/catalog-access/internal/core/domain"
)

// Tab identifies the detail pane shown for the current role.
type Tab string

const (
	TabPolicy Tab = "policy"
	TabUsers  Tab = "users"
)

var roleFields = []string{"policy", "users"}

// RolesPage drives the roles administration view: the role list, the current
// role's policy and rules, and the create/edit/delete flows. All state is
// ephemeral and rebuilt from server responses. The page is not safe for
// concurrent use; it models a single operator session.
type RolesPage struct {
	client *Client
	notify Notifier
	logger *zap.Logger

	roles         []domain.Role
	currentRole   *domain.Role
	currentPolicy *domain.Policy

	currentTab Tab
	isEditable bool
	errorData  map[string]string
	pageFailed bool

	addingRole   bool
	addingRule   bool
	editingRule  *domain.Rule
	deletingRule *domain.Rule

	loadingRoles  bool
	loadingPolicy bool
}

// NewRolesPage constructs the page controller.
func NewRolesPage(client *Client, notify Notifier, logger *zap.Logger) *RolesPage {
	if notify == nil {
		notify = NewZapNotifier(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RolesPage{
		client:     client,
		notify:     notify,
		logger:     logger,
		currentTab: TabPolicy,
	}
}

// Load fetches the full role list and makes the first role current, which in
// turn loads that role's policy.
func (p *RolesPage) Load(ctx context.Context) {
	p.loadingRoles = true
	defer func() { p.loadingRoles = false }()

	roles, err := p.client.GetRoles(ctx, roleFields)
	if err != nil {
		p.reportFetchError(err, "failed to fetch roles")
		return
	}

	p.roles = roles
	if len(p.roles) > 0 {
		p.setCurrentRole(ctx, &p.roles[0])
	} else {
		p.currentRole = nil
		p.currentPolicy = nil
	}
}

// SelectRole makes the named role current from already-loaded data. Selecting
// the role that is already current is a no-op; the dependent policy fetch runs
// once per actual change.
func (p *RolesPage) SelectRole(ctx context.Context, name string) {
	if p.currentRole != nil && p.currentRole.Name == name {
		return
	}

	for i := range p.roles {
		if p.roles[i].Name == name {
			p.setCurrentRole(ctx, &p.roles[i])
			return
		}
	}

	p.notify.Error(fmt.Sprintf("role %q is not loaded", name))
}

// RefreshRole re-fetches a role by name. With update set the same-name skip is
// bypassed, which is how a just-edited role is forced to reload. If the local
// role list was empty, the full list is refetched afterwards.
func (p *RolesPage) RefreshRole(ctx context.Context, name string, update bool) {
	if !update && p.currentRole != nil && p.currentRole.Name == name {
		return
	}

	p.loadingRoles = true
	defer func() { p.loadingRoles = false }()

	role, err := p.client.GetRoleByName(ctx, name, roleFields)
	if err != nil {
		p.reportFetchError(err, "failed to fetch role")
		return
	}

	replaced := false
	for i := range p.roles {
		if p.roles[i].Name == role.Name {
			p.roles[i] = *role
			p.setCurrentRole(ctx, &p.roles[i])
			replaced = true
			break
		}
	}
	if !replaced {
		p.roles = append(p.roles, *role)
		p.setCurrentRole(ctx, &p.roles[len(p.roles)-1])
	}

	if len(p.roles) == 1 && !replaced {
		p.Load(ctx)
	}
}

// CreateRole validates the candidate and, when valid, creates it and refetches
// the full role list. The add-role modal closes whenever the create call
// completes, success or not; a validation failure leaves it open with the
// field errors on screen.
func (p *RolesPage) CreateRole(ctx context.Context, candidate domain.Role) {
	errs := ValidateRole(candidate, p.roles, true, p.errorData)
	p.errorData = errs
	if len(errs) > 0 {
		return
	}

	defer func() { p.addingRole = false }()

	if _, err := p.client.CreateRole(ctx, RoleCreate{
		Name:        candidate.Name,
		DisplayName: candidate.DisplayName,
		Description: candidate.Description,
	}); err != nil {
		p.notifyFailure(err, "failed to create role")
		return
	}

	p.Load(ctx)
}

// UpdateDescription patches the current role's description. Edit mode exits
// immediately, before the call resolves, whatever the outcome. An unchanged
// description skips the call entirely.
func (p *RolesPage) UpdateDescription(ctx context.Context, description string) {
	p.isEditable = false

	if p.currentRole == nil || p.currentRole.Description == description {
		return
	}

	updated := *p.currentRole
	updated.Description = description

	ops, err := diffRoles(*p.currentRole, updated)
	if err != nil {
		p.notify.Error("failed to build role patch")
		return
	}

	if _, err := p.client.PatchRole(ctx, p.currentRole.ID, ops); err != nil {
		p.notifyFailure(err, "failed to update description")
		return
	}

	p.RefreshRole(ctx, p.currentRole.Name, true)
}

// AddRule appends a rule to the current policy and submits the policy
// wholesale. The rule name is derived from the policy name and operation, and
// the rule is stamped with the owning role's name.
func (p *RolesPage) AddRule(ctx context.Context, rule domain.Rule) {
	errs := ValidateRule(rule, true, p.errorData)
	p.errorData = errs
	if len(errs) > 0 {
		return
	}

	if p.currentPolicy == nil || p.currentRole == nil {
		p.notify.Error("no policy selected")
		return
	}

	defer func() { p.addingRule = false }()

	rule.Name = domain.RuleName(p.currentPolicy.Name, rule.Operation)
	rule.UserRoleAttr = p.currentRole.Name

	rules := make([]domain.Rule, 0, len(p.currentPolicy.Rules)+1)
	rules = append(rules, p.currentPolicy.Rules...)
	rules = append(rules, rule)

	p.submitPolicy(ctx, rules, "failed to add rule")
}

// UpdateRule replaces the rule whose name matches the edited rule and submits
// the policy wholesale.
func (p *RolesPage) UpdateRule(ctx context.Context, rule domain.Rule) {
	if p.currentPolicy == nil {
		p.notify.Error("no policy selected")
		return
	}

	defer func() { p.editingRule = nil }()

	rules := make([]domain.Rule, len(p.currentPolicy.Rules))
	copy(rules, p.currentPolicy.Rules)
	for i := range rules {
		if rules[i].Name == rule.Name {
			rules[i] = rule
		}
	}

	p.submitPolicy(ctx, rules, "failed to update rule")
}

// ToggleRule flips the rule's enabled flag and submits it as a regular rule
// update.
func (p *RolesPage) ToggleRule(ctx context.Context, rule domain.Rule) {
	rule.Enabled = !rule.Enabled
	p.UpdateRule(ctx, rule)
}

// DeleteRule removes every rule sharing the target rule's operation and
// submits the remainder wholesale. Matching is by operation, not by name, so
// sibling rules for the same operation go with it.
func (p *RolesPage) DeleteRule(ctx context.Context, rule domain.Rule) {
	if p.currentPolicy == nil {
		p.notify.Error("no policy selected")
		return
	}

	defer func() { p.deletingRule = nil }()

	rules := make([]domain.Rule, 0, len(p.currentPolicy.Rules))
	for _, existing := range p.currentPolicy.Rules {
		if existing.Operation == rule.Operation {
			continue
		}
		rules = append(rules, existing)
	}

	p.submitPolicy(ctx, rules, "failed to delete rule")
}

// SetTab switches the detail pane between the policy and users views.
func (p *RolesPage) SetTab(tab Tab) {
	if tab == TabPolicy || tab == TabUsers {
		p.currentTab = tab
	}
}

// StartEditDescription enters description edit mode.
func (p *RolesPage) StartEditDescription() { p.isEditable = true }

// CancelEditDescription leaves description edit mode without saving.
func (p *RolesPage) CancelEditDescription() { p.isEditable = false }

// OpenAddRole shows the add-role form and clears stale field errors.
func (p *RolesPage) OpenAddRole() {
	p.addingRole = true
	p.errorData = nil
}

// CloseAddRole hides the add-role form.
func (p *RolesPage) CloseAddRole() { p.addingRole = false }

// OpenAddRule shows the add-rule form and clears stale field errors.
func (p *RolesPage) OpenAddRule() {
	p.addingRule = true
	p.errorData = nil
}

// CloseAddRule hides the add-rule form.
func (p *RolesPage) CloseAddRule() { p.addingRule = false }

// StartEditRule marks a rule as being edited.
func (p *RolesPage) StartEditRule(rule domain.Rule) { p.editingRule = &rule }

// CancelEditRule clears the editing-rule state.
func (p *RolesPage) CancelEditRule() { p.editingRule = nil }

// StartDeleteRule marks a rule for deletion confirmation.
func (p *RolesPage) StartDeleteRule(rule domain.Rule) { p.deletingRule = &rule }

// CancelDeleteRule clears the deleting-rule state.
func (p *RolesPage) CancelDeleteRule() { p.deletingRule = nil }

// Roles returns the loaded role list.
func (p *RolesPage) Roles() []domain.Role { return p.roles }

// CurrentRole returns the current role, or nil when none is selected.
func (p *RolesPage) CurrentRole() *domain.Role { return p.currentRole }

// CurrentPolicy returns the current role's policy, or nil while unloaded.
func (p *RolesPage) CurrentPolicy() *domain.Policy { return p.currentPolicy }

// CurrentTab returns the selected detail tab.
func (p *RolesPage) CurrentTab() Tab { return p.currentTab }

// IsEditingDescription reports whether description edit mode is active.
func (p *RolesPage) IsEditingDescription() bool { return p.isEditable }

// IsAddingRole reports whether the add-role form is open.
func (p *RolesPage) IsAddingRole() bool { return p.addingRole }

// IsAddingRule reports whether the add-rule form is open.
func (p *RolesPage) IsAddingRule() bool { return p.addingRule }

// EditingRule returns the rule being edited, or nil.
func (p *RolesPage) EditingRule() *domain.Rule { return p.editingRule }

// DeletingRule returns the rule pending delete confirmation, or nil.
func (p *RolesPage) DeletingRule() *domain.Rule { return p.deletingRule }

// Errors returns the current field validation errors.
func (p *RolesPage) Errors() map[string]string { return p.errorData }

// PageFailed reports whether a fatal not-found error replaced the page body.
func (p *RolesPage) PageFailed() bool { return p.pageFailed }

// LoadingRoles reports whether a role fetch is in flight.
func (p *RolesPage) LoadingRoles() bool { return p.loadingRoles }

// LoadingPolicy reports whether a policy fetch is in flight.
func (p *RolesPage) LoadingPolicy() bool { return p.loadingPolicy }

// setCurrentRole switches the current role and runs the dependent policy
// fetch keyed on the new role's policy id.
func (p *RolesPage) setCurrentRole(ctx context.Context, role *domain.Role) {
	p.currentRole = role
	p.currentPolicy = nil

	if role == nil || role.Policy == nil || role.Policy.ID == "" {
		return
	}

	p.loadingPolicy = true
	defer func() { p.loadingPolicy = false }()

	policy, err := p.client.GetPolicy(ctx, role.Policy.ID, []string{"rules"})
	if err != nil {
		p.reportFetchError(err, "failed to fetch policy")
		return
	}

	p.currentPolicy = policy
}

// submitPolicy replaces the current policy's rule list wholesale. On success
// the local policy is replaced with the server response.
func (p *RolesPage) submitPolicy(ctx context.Context, rules []domain.Rule, failMsg string) {
	updated, err := p.client.UpdatePolicy(ctx, domain.Policy{
		ID:         p.currentPolicy.ID,
		Name:       p.currentPolicy.Name,
		PolicyType: p.currentPolicy.PolicyType,
		Rules:      rules,
	})
	if err != nil {
		p.notifyFailure(err, failMsg)
		return
	}

	p.currentPolicy = updated
}

// reportFetchError handles read-path failures: a not-found error is fatal to
// the page, everything else is a toast.
func (p *RolesPage) reportFetchError(err error, fallback string) {
	if IsEntityNotFound(err) {
		p.pageFailed = true
		return
	}
	p.notifyFailure(err, fallback)
}

func (p *RolesPage) notifyFailure(err error, fallback string) {
	p.logger.Warn("console operation failed", zap.Error(err))
	if apiErr, ok := err.(*APIError); ok && apiErr.Message != "" {
		p.notify.Error(apiErr.Message)
		return
	}
	p.notify.Error(fallback)
}

// diffRoles computes the RFC 6902 operations that transform before into after.
func diffRoles(before, after domain.Role) ([]jsonpatch.Operation, error) {
	beforeDoc, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("marshal role: %w", err)
	}
	afterDoc, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("marshal updated role: %w", err)
	}
	ops, err := jsonpatch.CreatePatch(beforeDoc, afterDoc)
	if err != nil {
		return nil, fmt.Errorf("diff roles: %w", err)
	}
	return ops, nil
}
