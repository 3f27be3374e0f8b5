package postgres

import (
	repo "github.com/baharkarakas/market-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users       repo.Users
	Sessions    repo.Sessions
	Roles       repo.Roles
	Bots        repo.Bots
	Blocks      repo.Blocks
	Marketplace repo.Marketplace
	Exchange    repo.Exchange
	Balances    repo.Balances
	Support     repo.Support
	Files       repo.Files
	Newsletter  repo.Newsletter
	AuditLogs   repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       &usersRepo{pool},
		Sessions:    &sessionsRepo{pool},
		Roles:       &rolesRepo{pool},
		Bots:        &botsRepo{pool},
		Blocks:      &blocksRepo{pool},
		Marketplace: &marketplaceRepo{pool: pool, db: pool},
		Exchange:    &exchangeRepo{pool: pool, db: pool},
		Balances:    &balancesRepo{pool},
		Support:     &supportRepo{pool: pool, db: pool},
		Files:       &filesRepo{pool},
		Newsletter:  &newsletterRepo{pool},
		AuditLogs:   &auditLogsRepo{pool},
	}
}
