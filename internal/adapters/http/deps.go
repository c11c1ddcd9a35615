package http

import (
	"github.com/nats-io/nats.go"

	"github.com/campusgo/shuttleplan/internal/adapters/postgres"
	"github.com/campusgo/shuttleplan/internal/adapters/valkey"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Planner    *usecases.PlannerService
	Catalog    *usecases.CatalogService
	Membership *usecases.MembershipService
	Arrivals   *usecases.ArrivalsService
	PlanLog    ports.PlanLogRepository
	Snapshots  ports.StopSnapshotRepository
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
