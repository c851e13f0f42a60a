package tax

import (
	"github.com/notalys/notalys/internal/tax/repository"
	"github.com/notalys/notalys/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
