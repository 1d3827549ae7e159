package builtins

import (
	"fmt"

	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/pipeline"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// secretVerb reads a credential from the OS store.
// Syntax:
//
//	|secret:key          - read key from the configured namespace
//	|secret:key:default  - fall back to default when the key is missing
func secretVerb(store SecretReader, namespace string) pipeline.Verb {
	if namespace == "" {
		namespace = "default"
	}
	return func(inv *pipeline.Invocation) pipeline.Result {
		if len(inv.Args) == 0 {
			return pipeline.Fail(fmt.Errorf("%w: secret key", dperrors.ErrMissingArgument))
		}
		key := inv.Arg(0).String()
		hasDefault := len(inv.Args) > 1

		if store == nil {
			if hasDefault {
				return pipeline.Return(inv.Arg(1))
			}
			return pipeline.Fail(fmt.Errorf("secrets manager not available"))
		}

		value, err := store.Get(namespace, key)
		if err != nil {
			if hasDefault {
				return pipeline.Return(inv.Arg(1))
			}
			return pipeline.Fail(fmt.Errorf("secret %s:%s: %w", namespace, key, err))
		}
		return pipeline.Return(types.String(value))
	}
}
