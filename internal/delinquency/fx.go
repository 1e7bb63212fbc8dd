package delinquency

import (
	"github.com/kekeligroup/backoffice/internal/delinquency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delinquency.service",
	fx.Provide(service.NewService),
)
