package app

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/acolhe/clinicd_backend/config"
	"github.com/acolhe/clinicd_backend/internal/directory"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/events"
	"github.com/acolhe/clinicd_backend/internal/service/appointment"
	"github.com/acolhe/clinicd_backend/internal/service/finance"
	"github.com/acolhe/clinicd_backend/internal/service/payment"
	"github.com/acolhe/clinicd_backend/internal/store"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideAppointmentService,
		ProvidePaymentService,
		ProvideFinanceService,
	),
)

func ProvideAppointmentService(
	db store.Store,
	pub events.Publisher,
	dir directory.Directory,
	clock domain.Clock,
	cfg *config.Config,
) appointment.Service {
	return appointment.New(db, pub, dir, clock, cfg.Appointments)
}

func ProvidePaymentService(
	db store.Store,
	pub events.Publisher,
	dir directory.Directory,
	clock domain.Clock,
) payment.Service {
	return payment.New(db, pub, dir, clock)
}

func ProvideFinanceService(
	db store.Store,
	dir directory.Directory,
	rdb *redis.Client,
	cfg *config.Config,
) finance.Service {
	return finance.New(db, dir, rdb, cfg.Finance)
}
