package feecalc

import (
	"github.com/notalys/notalys/internal/feecalc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feecalc.service",
	fx.Provide(service.NewService),
)
