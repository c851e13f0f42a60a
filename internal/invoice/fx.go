package invoice

import (
	"github.com/notalys/notalys/internal/invoice/repository"
	"github.com/notalys/notalys/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
