package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arklim/catalog-access/internal/core/domain"
)

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

// fakeCatalog is an in-memory stand-in for the catalog API, recording call
// counts so tests can assert on fetch behaviour.
type fakeCatalog struct {
	roles    []domain.Role
	policies map[string]domain.Policy

	roleListCalls int
	createCalls   int
	patchCalls    int
	policyGets    map[string]int
	submitted     []domain.Policy

	failPatch  bool
	failCreate string
	notFound   bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		policies:   make(map[string]domain.Policy),
		policyGets: make(map[string]int),
	}
}

func (f *fakeCatalog) addRole(role domain.Role, policy domain.Policy) {
	role.Policy = &domain.EntityReference{ID: policy.ID, Type: "policy", Name: policy.Name}
	f.roles = append(f.roles, role)
	f.policies[policy.ID] = policy
}

func (f *fakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if f.notFound {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "ENTITY_NOT_FOUND", "error": "not found"})
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/api/v1/roles":
		f.roleListCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"data": f.roles})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/roles/name/"):
		name := strings.TrimPrefix(path, "/api/v1/roles/name/")
		for _, role := range f.roles {
			if role.Name == name {
				_ = json.NewEncoder(w).Encode(role)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "ENTITY_NOT_FOUND", "error": "role not found"})

	case r.Method == http.MethodPost && path == "/api/v1/roles":
		f.createCalls++
		if f.failCreate != "" {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "ENTITY_ALREADY_EXISTS", "error": f.failCreate})
			return
		}
		var req RoleCreate
		_ = json.NewDecoder(r.Body).Decode(&req)
		policy := domain.Policy{
			ID:         "policy-" + req.Name,
			Name:       req.Name + "-policy",
			PolicyType: domain.PolicyTypeAccessControl,
			Rules:      []domain.Rule{},
		}
		role := domain.Role{ID: "role-" + req.Name, Name: req.Name, DisplayName: req.DisplayName, Description: req.Description}
		f.addRole(role, policy)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(f.roles[len(f.roles)-1])

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/api/v1/roles/"):
		f.patchCalls++
		if f.failPatch {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "INTERNAL_SERVER_ERROR", "error": "patch rejected"})
			return
		}
		id := strings.TrimPrefix(path, "/api/v1/roles/")
		var ops []struct {
			Op    string          `json:"op"`
			Path  string          `json:"path"`
			Value json.RawMessage `json:"value"`
		}
		_ = json.NewDecoder(r.Body).Decode(&ops)
		for i := range f.roles {
			if f.roles[i].ID != id {
				continue
			}
			for _, op := range ops {
				if op.Path == "/description" && (op.Op == "replace" || op.Op == "add") {
					var desc string
					_ = json.Unmarshal(op.Value, &desc)
					f.roles[i].Description = desc
				}
			}
			_ = json.NewEncoder(w).Encode(f.roles[i])
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "ENTITY_NOT_FOUND", "error": "role not found"})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/policies/"):
		id := strings.TrimPrefix(path, "/api/v1/policies/")
		f.policyGets[id]++
		policy, ok := f.policies[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "ENTITY_NOT_FOUND", "error": "policy not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(policy)

	case r.Method == http.MethodPut && path == "/api/v1/policies":
		var policy domain.Policy
		_ = json.NewDecoder(r.Body).Decode(&policy)
		f.submitted = append(f.submitted, policy)
		f.policies[policy.ID] = policy
		_ = json.NewEncoder(w).Encode(policy)

	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "ENTITY_NOT_FOUND", "error": "no route"})
	}
}

func newTestPage(t *testing.T, catalog *fakeCatalog) (*RolesPage, *recordingNotifier, func()) {
	t.Helper()

	server := httptest.NewServer(catalog)
	notifier := &recordingNotifier{}
	client := NewClient(server.URL, 5*time.Second)
	page := NewRolesPage(client, notifier, nil)

	return page, notifier, server.Close
}

func seededCatalog() *fakeCatalog {
	catalog := newFakeCatalog()
	catalog.addRole(
		domain.Role{ID: "r1", Name: "admin", DisplayName: "Admin", Description: "full access"},
		domain.Policy{ID: "p1", Name: "admin-policy", PolicyType: domain.PolicyTypeAccessControl, Rules: []domain.Rule{
			{Name: "admin-policy-UpdateTags", Operation: domain.OperationUpdateTags, Allow: true, Enabled: true, UserRoleAttr: "admin"},
		}},
	)
	catalog.addRole(
		domain.Role{ID: "r2", Name: "steward", DisplayName: "Data Steward"},
		domain.Policy{ID: "p2", Name: "steward-policy", PolicyType: domain.PolicyTypeAccessControl, Rules: []domain.Rule{}},
	)
	return catalog
}

func TestLoadSelectsFirstRoleAndFetchesPolicy(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	page.Load(context.Background())

	if got := page.CurrentRole(); got == nil || got.Name != "admin" {
		t.Fatalf("expected first role to become current, got %+v", got)
	}
	if got := page.CurrentPolicy(); got == nil || got.ID != "p1" {
		t.Fatalf("expected policy p1 to be loaded, got %+v", got)
	}
	if catalog.policyGets["p1"] != 1 {
		t.Fatalf("expected exactly one policy fetch, got %d", catalog.policyGets["p1"])
	}
	if page.LoadingRoles() || page.LoadingPolicy() {
		t.Fatal("expected loading flags to be cleared")
	}
}

func TestSelectRoleFetchesPolicyOncePerChange(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)

	page.SelectRole(ctx, "steward")
	if got := page.CurrentPolicy(); got == nil || got.ID != "p2" {
		t.Fatalf("expected policy p2 after switch, got %+v", got)
	}
	if catalog.policyGets["p2"] != 1 {
		t.Fatalf("expected one fetch of p2, got %d", catalog.policyGets["p2"])
	}

	// Re-selecting the current role must not refetch.
	page.SelectRole(ctx, "steward")
	if catalog.policyGets["p2"] != 1 {
		t.Fatalf("expected same-role selection to skip the fetch, got %d", catalog.policyGets["p2"])
	}
}

func TestCreateRoleBlockedByValidation(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.OpenAddRole()

	page.CreateRole(ctx, domain.Role{Name: "Admin", DisplayName: "X"})

	if catalog.createCalls != 0 {
		t.Fatalf("expected no create call, got %d", catalog.createCalls)
	}
	if got := page.Errors()["name"]; got != "name already exists" {
		t.Fatalf("expected case-insensitive duplicate error, got %q", got)
	}
	if !page.IsAddingRole() {
		t.Fatal("expected add-role form to stay open on validation failure")
	}
}

func TestCreateRoleRefetchesList(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.OpenAddRole()
	listCallsBefore := catalog.roleListCalls

	page.CreateRole(ctx, domain.Role{Name: "viewer", DisplayName: "Viewer"})

	if catalog.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", catalog.createCalls)
	}
	if catalog.roleListCalls != listCallsBefore+1 {
		t.Fatalf("expected role list refetch after create, got %d calls", catalog.roleListCalls)
	}
	if page.IsAddingRole() {
		t.Fatal("expected add-role form to close on completion")
	}
	if len(page.Roles()) != 3 {
		t.Fatalf("expected 3 roles after refetch, got %d", len(page.Roles()))
	}
}

func TestCreateRoleFailureClosesFormAndNotifies(t *testing.T) {
	catalog := seededCatalog()
	catalog.failCreate = "role already exists"
	page, notifier, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.OpenAddRole()

	page.CreateRole(ctx, domain.Role{Name: "viewer", DisplayName: "Viewer"})

	if page.IsAddingRole() {
		t.Fatal("expected add-role form to close even on server failure")
	}
	if len(notifier.errors) != 1 || notifier.errors[0] != "role already exists" {
		t.Fatalf("expected server message toast, got %v", notifier.errors)
	}
}

func TestToggleRuleFlipsOnlyEnabled(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)

	target := page.CurrentPolicy().Rules[0]
	page.ToggleRule(ctx, target)

	if len(catalog.submitted) != 1 {
		t.Fatalf("expected one wholesale policy submit, got %d", len(catalog.submitted))
	}
	submitted := catalog.submitted[0]
	if submitted.ID != "p1" || len(submitted.Rules) != 1 {
		t.Fatalf("expected full policy p1 with one rule, got %+v", submitted)
	}
	got := submitted.Rules[0]
	if got.Enabled == target.Enabled {
		t.Fatal("expected enabled flag to be flipped")
	}
	got.Enabled = target.Enabled
	if got != target {
		t.Fatalf("expected only enabled to change, got %+v vs %+v", submitted.Rules[0], target)
	}
	if page.CurrentPolicy().Rules[0].Enabled == target.Enabled {
		t.Fatal("expected local policy replaced with server response")
	}
}

func TestDeleteRuleRemovesAllSharingOperation(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addRole(
		domain.Role{ID: "r1", Name: "admin", DisplayName: "Admin"},
		domain.Policy{ID: "p1", Name: "admin-policy", PolicyType: domain.PolicyTypeAccessControl, Rules: []domain.Rule{
			{Name: "rule-a", Operation: domain.OperationUpdateTags, Allow: true, Enabled: true},
			{Name: "rule-b", Operation: domain.OperationUpdateTags, Allow: false, Enabled: true},
			{Name: "rule-c", Operation: domain.OperationUpdateOwner, Allow: true, Enabled: true},
		}},
	)
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.StartDeleteRule(page.CurrentPolicy().Rules[0])

	page.DeleteRule(ctx, page.CurrentPolicy().Rules[0])

	if len(catalog.submitted) != 1 {
		t.Fatalf("expected one policy submit, got %d", len(catalog.submitted))
	}
	rules := catalog.submitted[0].Rules
	if len(rules) != 1 || rules[0].Name != "rule-c" {
		t.Fatalf("expected every UpdateTags rule removed, got %+v", rules)
	}
	if page.DeletingRule() != nil {
		t.Fatal("expected deleting-rule state cleared on completion")
	}
}

func TestAddRuleDerivesNameAndStampsRole(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.OpenAddRule()

	page.AddRule(ctx, domain.Rule{Operation: domain.OperationUpdateOwner, Allow: true, Enabled: true})

	if len(catalog.submitted) != 1 {
		t.Fatalf("expected one policy submit, got %d", len(catalog.submitted))
	}
	rules := catalog.submitted[0].Rules
	added := rules[len(rules)-1]
	if added.Name != "admin-policy-UpdateOwner" {
		t.Fatalf("expected derived rule name, got %q", added.Name)
	}
	if added.UserRoleAttr != "admin" {
		t.Fatalf("expected rule stamped with role name, got %q", added.UserRoleAttr)
	}
	if page.IsAddingRule() {
		t.Fatal("expected add-rule form to close on completion")
	}
}

func TestAddRuleBlockedByValidation(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.OpenAddRule()

	page.AddRule(ctx, domain.Rule{Allow: true})

	if len(catalog.submitted) != 0 {
		t.Fatalf("expected no policy submit, got %d", len(catalog.submitted))
	}
	if page.Errors()["operation"] == "" {
		t.Fatalf("expected operation error, got %v", page.Errors())
	}
}

func TestUpdateDescriptionOptimisticExit(t *testing.T) {
	catalog := seededCatalog()
	catalog.failPatch = true
	page, notifier, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.StartEditDescription()

	page.UpdateDescription(ctx, "new description")

	if page.IsEditingDescription() {
		t.Fatal("expected edit mode to exit despite the failed patch")
	}
	if len(notifier.errors) == 0 {
		t.Fatal("expected a failure toast")
	}
	if page.CurrentRole().Description != "full access" {
		t.Fatalf("expected description unchanged, got %q", page.CurrentRole().Description)
	}
}

func TestUpdateDescriptionUnchangedSkipsCall(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.StartEditDescription()

	page.UpdateDescription(ctx, "full access")

	if catalog.patchCalls != 0 {
		t.Fatalf("expected no patch call for unchanged description, got %d", catalog.patchCalls)
	}
	if page.IsEditingDescription() {
		t.Fatal("expected edit mode to exit")
	}
}

func TestUpdateDescriptionRefreshesRole(t *testing.T) {
	catalog := seededCatalog()
	page, _, cleanup := newTestPage(t, catalog)
	defer cleanup()

	ctx := context.Background()
	page.Load(ctx)
	page.StartEditDescription()

	page.UpdateDescription(ctx, "tightened")

	if catalog.patchCalls != 1 {
		t.Fatalf("expected one patch call, got %d", catalog.patchCalls)
	}
	if got := page.CurrentRole().Description; got != "tightened" {
		t.Fatalf("expected refreshed description, got %q", got)
	}
}

func TestEntityNotFoundIsFatal(t *testing.T) {
	catalog := seededCatalog()
	catalog.notFound = true
	page, notifier, cleanup := newTestPage(t, catalog)
	defer cleanup()

	page.Load(context.Background())

	if !page.PageFailed() {
		t.Fatal("expected fatal page error on ENTITY_NOT_FOUND")
	}
	if len(notifier.errors) != 0 {
		t.Fatalf("expected no toast for the fatal path, got %v", notifier.errors)
	}
}

func TestTabSwitching(t *testing.T) {
	page := NewRolesPage(nil, &recordingNotifier{}, nil)

	if page.CurrentTab() != TabPolicy {
		t.Fatalf("expected policy tab by default, got %q", page.CurrentTab())
	}

	page.SetTab(TabUsers)
	if page.CurrentTab() != TabUsers {
		t.Fatalf("expected users tab, got %q", page.CurrentTab())
	}

	page.SetTab("bogus")
	if page.CurrentTab() != TabUsers {
		t.Fatalf("expected unknown tab to be ignored, got %q", page.CurrentTab())
	}
}
