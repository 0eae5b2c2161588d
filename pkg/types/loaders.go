package types

import (
	"context"
)

type Avx_loaders interface {
	Close()
	Run(context.Context) error
}
