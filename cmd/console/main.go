package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/arklim/catalog-access/internal/console"
	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/infra/config"
)

// stdoutNotifier prints operation results directly to the terminal.
type stdoutNotifier struct{}

func (stdoutNotifier) Success(msg string) { fmt.Printf("%sok:%s %s\n", ansiGreen, ansiReset, msg) }
func (stdoutNotifier) Error(msg string)   { fmt.Printf("%serror:%s %s\n", ansiRed, ansiReset, msg) }

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	client := console.NewClient(cfg.Console.APIURL, cfg.Console.RequestTimeout)
	page := console.NewRolesPage(client, stdoutNotifier{}, nil)

	ctx := context.Background()
	page.Load(ctx)
	render(page)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}

		dispatch(ctx, page, fields[0], fields[1:])
		render(page)
	}
}

func dispatch(ctx context.Context, page *console.RolesPage, command string, args []string) {
	switch command {
	case "select":
		if len(args) != 1 {
			fmt.Println("usage: select <role-name>")
			return
		}
		page.SelectRole(ctx, args[0])

	case "refresh":
		if role := page.CurrentRole(); role != nil {
			page.RefreshRole(ctx, role.Name, true)
		}

	case "create":
		if len(args) < 2 {
			fmt.Println("usage: create <name> <display-name> [description...]")
			return
		}
		page.OpenAddRole()
		page.CreateRole(ctx, domain.Role{
			Name:        args[0],
			DisplayName: args[1],
			Description: strings.Join(args[2:], " "),
		})
		for field, msg := range page.Errors() {
			fmt.Printf("  %s: %s\n", field, msg)
		}

	case "describe":
		page.StartEditDescription()
		page.UpdateDescription(ctx, strings.Join(args, " "))

	case "add-rule":
		if len(args) != 2 || (args[1] != "allow" && args[1] != "deny") {
			fmt.Println("usage: add-rule <operation> allow|deny")
			fmt.Printf("operations: %s\n", operationList())
			return
		}
		page.OpenAddRule()
		page.AddRule(ctx, domain.Rule{
			Operation: domain.Operation(args[0]),
			Allow:     args[1] == "allow",
			Enabled:   true,
		})
		for field, msg := range page.Errors() {
			fmt.Printf("  %s: %s\n", field, msg)
		}

	case "toggle":
		if len(args) != 1 {
			fmt.Println("usage: toggle <rule-name>")
			return
		}
		if rule, ok := findRule(page, args[0]); ok {
			page.ToggleRule(ctx, rule)
		} else {
			fmt.Printf("no rule named %q\n", args[0])
		}

	case "delete-rule":
		if len(args) != 1 {
			fmt.Println("usage: delete-rule <rule-name>")
			return
		}
		if rule, ok := findRule(page, args[0]); ok {
			page.StartDeleteRule(rule)
			page.DeleteRule(ctx, rule)
		} else {
			fmt.Printf("no rule named %q\n", args[0])
		}

	case "tab":
		if len(args) != 1 {
			fmt.Println("usage: tab policy|users")
			return
		}
		page.SetTab(console.Tab(args[0]))

	case "help":
		printHelp()

	default:
		fmt.Printf("unknown command: %s (try help)\n", command)
	}
}

func findRule(page *console.RolesPage, name string) (domain.Rule, bool) {
	policy := page.CurrentPolicy()
	if policy == nil {
		return domain.Rule{}, false
	}
	for _, rule := range policy.Rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return domain.Rule{}, false
}

func render(page *console.RolesPage) {
	if page.PageFailed() {
		fmt.Println("the requested resource no longer exists; restart the console")
		return
	}

	fmt.Println()
	fmt.Println("ROLES")
	for _, role := range page.Roles() {
		marker := "  "
		if current := page.CurrentRole(); current != nil && current.Name == role.Name {
			marker = "* "
		}
		fmt.Printf("%s%s (%s)\n", marker, role.Name, role.DisplayName)
	}

	current := page.CurrentRole()
	if current == nil {
		fmt.Println("\nno role selected")
		return
	}

	fmt.Printf("\n%s — %s\n", current.DisplayName, valueOrDash(current.Description))
	fmt.Printf("[%s] [%s]\n\n", tabLabel(page, console.TabPolicy), tabLabel(page, console.TabUsers))

	switch page.CurrentTab() {
	case console.TabUsers:
		renderUsers(current)
	default:
		renderPolicy(page)
	}
}

func renderPolicy(page *console.RolesPage) {
	policy := page.CurrentPolicy()
	if policy == nil {
		fmt.Println("no policy loaded")
		return
	}

	fmt.Printf("policy: %s (%s)\n", policy.Name, policy.PolicyType)
	if len(policy.Rules) == 0 {
		fmt.Println("no rules")
		return
	}

	headers := []string{"NAME", "OPERATION", "EFFECT", "STATE"}
	rows := make([][]string, 0, len(policy.Rules))
	for _, rule := range policy.Rules {
		rows = append(rows, []string{
			rule.Name,
			string(rule.Operation),
			colorEffect(rule.Allow),
			colorEnabled(rule.Enabled),
		})
	}
	renderTable(os.Stdout, headers, rows)
}

func renderUsers(role *domain.Role) {
	if len(role.Users) == 0 {
		fmt.Println("no users in this role")
		return
	}

	headers := []string{"NAME", "DISPLAY NAME"}
	rows := make([][]string, 0, len(role.Users))
	for _, user := range role.Users {
		rows = append(rows, []string{user.Name, valueOrDash(user.DisplayName)})
	}
	renderTable(os.Stdout, headers, rows)
}

func tabLabel(page *console.RolesPage, tab console.Tab) string {
	label := string(tab)
	if page.CurrentTab() == tab {
		return strings.ToUpper(label)
	}
	return label
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func operationList() string {
	ops := domain.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

func printHelp() {
	fmt.Print(`Commands:
  select <role-name>              Switch the current role
  refresh                         Re-fetch the current role
  create <name> <display> [desc]  Create a new role
  describe <text...>              Update the current role's description
  add-rule <operation> allow|deny Add a rule to the current policy
  toggle <rule-name>              Flip a rule's enabled flag
  delete-rule <rule-name>         Delete rules for the rule's operation
  tab policy|users                Switch the detail tab
  quit                            Exit
`)
}
