package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// healthCheckTimeout bounds a single database probe.
const healthCheckTimeout = 2 * time.Second

// HealthService reports whether the database is reachable.
type HealthService struct {
	db *sql.DB
}

func NewHealthService(db *sql.DB) *HealthService {
	return &HealthService{db: db}
}

// Check pings the database.
func (s *HealthService) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
