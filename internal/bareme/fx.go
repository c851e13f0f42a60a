package bareme

import (
	"github.com/notalys/notalys/internal/bareme/repository"
	"github.com/notalys/notalys/internal/bareme/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bareme.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
