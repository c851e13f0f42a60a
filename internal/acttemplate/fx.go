package acttemplate

import (
	"github.com/notalys/notalys/internal/acttemplate/repository"
	"github.com/notalys/notalys/internal/acttemplate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("acttemplate.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
