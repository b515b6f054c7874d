package usermgmt

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Manager drives the admin account store from both ends: the
// "user-mgmt" CLI subcommand, and CreateDefaultUserFromEnv at server
// startup.
type Manager struct {
	db *UserDB
}

// NewManager opens the admin account store at dbPath.
func NewManager(dbPath string) *Manager {
	return &Manager{db: NewUserDB(dbPath)}
}

// GetUserDB returns the underlying UserDB, for wiring into the admin SSH
// console's PasswordCallback.
func (m *Manager) GetUserDB() *UserDB {
	return m.db
}

// CreateDefaultUserFromEnv creates a default admin account from the
// REVTUN_ADMIN_USER / REVTUN_ADMIN_PASSWORD environment variables, if both
// are set and no account by that name already exists. It's a no-op
// otherwise, so a server restart with the same env vars doesn't churn the
// account (and doesn't reset a password an operator since changed).
func (m *Manager) CreateDefaultUserFromEnv() error {
	user := os.Getenv("REVTUN_ADMIN_USER")
	pass := os.Getenv("REVTUN_ADMIN_PASSWORD")
	if user == "" || pass == "" {
		return nil
	}

	if _, err := m.db.GetUserInfo(user); err == nil {
		log.Printf("admin account %q already exists, leaving it alone", user)
		return nil
	}

	if err := m.db.AddUser(user, pass); err != nil {
		return fmt.Errorf("creating default admin account %q: %w", user, err)
	}
	log.Printf("created default admin account %q from environment", user)
	return nil
}

// adminCommand is one entry in the user-mgmt CLI's dispatch table: a name,
// an arg-count-dependent handler, and the help text shown for it.
type adminCommand struct {
	name string
	help string
	run  func(m *Manager, rl *lineReader, args []string) string // returns a result message
}

var adminCommands = []adminCommand{
	{
		name: "add-user",
		help: "add-user                 - add a new account (interactive)",
		run: func(m *Manager, rl *lineReader, _ []string) string {
			username, password, err := rl.promptNewCredentials()
			if err != nil {
				return "error: " + err.Error()
			}
			if err := m.db.AddUser(username, password); err != nil {
				return "error: " + err.Error()
			}
			return fmt.Sprintf("account %q created", username)
		},
	},
	{
		name: "remove-user",
		help: "remove-user <user>       - remove an account",
		run: func(m *Manager, _ *lineReader, args []string) string {
			if len(args) < 1 {
				return "usage: remove-user <user>"
			}
			if err := m.db.RemoveUser(args[0]); err != nil {
				return "error: " + err.Error()
			}
			return fmt.Sprintf("account %q removed", args[0])
		},
	},
	{
		name: "list-users",
		help: "list-users               - list all accounts",
		run: func(m *Manager, _ *lineReader, _ []string) string {
			return m.formatUserTable()
		},
	},
	{
		name: "change-password",
		help: "change-password          - change an account's password (interactive)",
		run: func(m *Manager, rl *lineReader, _ []string) string {
			username, password, err := rl.promptChangedCredentials()
			if err != nil {
				return "error: " + err.Error()
			}
			if err := m.db.UpdatePassword(username, password); err != nil {
				return "error: " + err.Error()
			}
			return fmt.Sprintf("password changed for %q", username)
		},
	},
	{
		name: "enable-user",
		help: "enable-user <user>       - re-enable a disabled account",
		run: func(m *Manager, _ *lineReader, args []string) string {
			if len(args) < 1 {
				return "usage: enable-user <user>"
			}
			if err := m.db.EnableUser(args[0]); err != nil {
				return "error: " + err.Error()
			}
			return fmt.Sprintf("account %q enabled", args[0])
		},
	},
	{
		name: "disable-user",
		help: "disable-user <user>      - disable an account without deleting it",
		run: func(m *Manager, _ *lineReader, args []string) string {
			if len(args) < 1 {
				return "usage: disable-user <user>"
			}
			if err := m.db.DisableUser(args[0]); err != nil {
				return "error: " + err.Error()
			}
			return fmt.Sprintf("account %q disabled", args[0])
		},
	},
	{
		name: "backup-users",
		help: "backup-users <file>      - write a copy of the account store to <file>",
		run: func(m *Manager, _ *lineReader, args []string) string {
			if len(args) < 1 {
				return "usage: backup-users <file>"
			}
			if err := m.db.BackupDB(args[0]); err != nil {
				return "error: " + err.Error()
			}
			return fmt.Sprintf("account store backed up to %q", args[0])
		},
	},
}

// formatUserTable renders the current accounts as a fixed-width table.
func (m *Manager) formatUserTable() string {
	usernames := m.db.ListUsers()
	if len(usernames) == 0 {
		return "no admin accounts"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-10s %-20s\n", "username", "status", "created")
	b.WriteString(strings.Repeat("-", 52) + "\n")
	for _, username := range usernames {
		account, err := m.db.GetUserInfo(username)
		if err != nil {
			fmt.Fprintf(&b, "%-20s error: %v\n", username, err)
			continue
		}
		status := "enabled"
		if !account.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "%-20s %-10s %-20s\n", account.Username, status, account.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// lineReader wraps stdin for the credential prompts that need more than one
// line of input (confirmation prompts aren't a single dispatch-table arg).
type lineReader struct {
	r *bufio.Reader
}

func newLineReader() *lineReader {
	return &lineReader{r: bufio.NewReader(os.Stdin)}
}

func (rl *lineReader) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := rl.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (rl *lineReader) promptNewCredentials() (username, password string, err error) {
	username, err = rl.prompt("username: ")
	if err != nil {
		return "", "", err
	}
	return rl.promptMatchingPasswords(username, "password: ", "confirm password: ")
}

func (rl *lineReader) promptChangedCredentials() (username, password string, err error) {
	username, err = rl.prompt("username: ")
	if err != nil {
		return "", "", err
	}
	return rl.promptMatchingPasswords(username, "new password: ", "confirm new password: ")
}

func (rl *lineReader) promptMatchingPasswords(username, firstLabel, secondLabel string) (string, string, error) {
	password, err := rl.prompt(firstLabel)
	if err != nil {
		return "", "", err
	}
	confirm, err := rl.prompt(secondLabel)
	if err != nil {
		return "", "", err
	}
	if password != confirm {
		return "", "", fmt.Errorf("passwords do not match")
	}
	return username, password, nil
}

// RunUserManagementCLI drives adminCommands interactively against stdin
// until the operator types "exit" or "quit".
func (m *Manager) RunUserManagementCLI() {
	rl := newLineReader()
	fmt.Println("revtun admin account management - type 'help' for commands, 'exit' to quit")

	for {
		line, err := rl.prompt("revtun> ")
		if err != nil {
			fmt.Printf("error reading input: %v\n", err)
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			fmt.Println("goodbye")
			return
		case "help":
			fmt.Println("commands:")
			for _, c := range adminCommands {
				fmt.Println("  " + c.help)
			}
			fmt.Println("  help                     - show this help")
			fmt.Println("  exit, quit               - leave the account manager")
		default:
			cmd := findAdminCommand(fields[0])
			if cmd == nil {
				fmt.Printf("unknown command %q - type 'help' for the list\n", fields[0])
				continue
			}
			fmt.Println(cmd.run(m, rl, fields[1:]))
		}
	}
}

func findAdminCommand(name string) *adminCommand {
	for i := range adminCommands {
		if adminCommands[i].name == name {
			return &adminCommands[i]
		}
	}
	return nil
}
