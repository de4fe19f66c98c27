package postgres

import "context"

// UserRepo backs the admin-bootstrap CLI command (spec §6.4). Tomato
// has no login surface of its own, so this repository only ever needs
// to check for and create the single seeded account.
type UserRepo struct{ r *Repository }

// AnyExist reports whether at least one user row exists, so bootstrap
// can skip re-seeding on every restart.
func (repo *UserRepo) AnyExist(ctx context.Context) (bool, error) {
	var exists bool
	err := repo.r.conn().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists)
	return exists, err
}

// Create inserts the bootstrap admin user.
func (repo *UserRepo) Create(ctx context.Context, username, email, passwordHash string) error {
	_, err := repo.r.conn().Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')`, username, email, passwordHash)
	return err
}
