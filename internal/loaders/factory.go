package loaders

import (
	"github.com/pkg/errors"

	"github.com/ALEYI17/InfraSight_avx/internal/probe"
	"github.com/ALEYI17/InfraSight_avx/pkg/types"
)

func NewEbpfAvxLoaders(program string, bpfPath string, maps *probe.Maps) (types.Avx_loaders, error) {

	switch program {
	case types.LoaderAvx512:
		return NewAvxTracerLoader(bpfPath, maps)
	default:
		return nil, errors.New("Unsuported or unknow program")
	}
}
