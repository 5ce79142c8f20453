package usecases

import (
	"context"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/loader"
)

type GraphLoader interface {
	Load(ctx context.Context, area loader.Area) (*da.Graph, string, error)
}
