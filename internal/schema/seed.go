package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// ComplexCaseTask is the distinguished task category that requires notes
// before an entry against it may be closed.
const ComplexCaseTask = "Casos complexos"

var initialTasks = []string{
	"Cadastro cotação",
	"Fechamento",
	"Envio de cotações aos cliente",
	ComplexCaseTask,
}

var initialClients = []string{
	"Amazon Polpas", "Argo Foods", "Ebram", "TG Projects", "PQVIRK", "Inbra", "Cedro",
	"Gpagro", "FCN Prime", "Lusitano da Amazonia", "Pneu Free", "Empório dos Mármores",
	"FG Resinas", "Grupo vita sano", "Tramontina Belém", "Biomed", "Mundo dos Ferros",
	"OPT", "UNESP", "KRG", "Brasil internacional", "Duoflex", "Purcom", "Valgroup",
	"Tramontina delta", "Clean amazonas", "Raposo Plásticos", "Amaxxon", "The controller",
	"EnVimat", "Formaggio", "GR Water", "Maringá Ferros", "Alpha comex", "Lusitano",
	"Digital conect", "Qualitronix", "Adar Indústria", "Tramontina garibaldi",
}

// Seed inserts the default admin user and the initial reference data.
// Safe to run repeatedly; existing rows are left alone.
func Seed(ctx context.Context, db *sqlx.DB, adminUsername, adminPassword string) error {
	var exists int
	err := db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM users WHERE username = $1", adminUsername)
	if err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}

	if exists == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		_, err = db.ExecContext(ctx,
			"INSERT INTO users (username, password, role) VALUES ($1, $2, 'admin')",
			adminUsername, string(hash),
		)
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	for _, name := range initialTasks {
		_, err := db.ExecContext(ctx,
			"INSERT INTO tasks (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name)
		if err != nil {
			return fmt.Errorf("failed to seed task %q: %w", name, err)
		}
	}

	for _, name := range initialClients {
		_, err := db.ExecContext(ctx,
			"INSERT INTO clients (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name)
		if err != nil {
			return fmt.Errorf("failed to seed client %q: %w", name, err)
		}
	}

	return nil
}
