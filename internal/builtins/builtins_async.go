package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/fetch"
	"github.com/phillarmonic/dotpipe/internal/pipeline"
	"github.com/phillarmonic/dotpipe/internal/types"
)

var httpMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// sleepVerb suspends the execution for a number of milliseconds
func sleepVerb(inv *pipeline.Invocation) pipeline.Result {
	ms, ok := inv.Arg(0).AsNumber()
	if !ok || ms < 0 {
		ms = 0
	}
	d := time.Duration(int64(ms)) * time.Millisecond

	return pipeline.Await(pipeline.Async(inv.Context, func(ctx context.Context) (types.Value, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return types.Undefined(), nil
		case <-ctx.Done():
			return types.Undefined(), ctx.Err()
		}
	}))
}

// requestOf rebuilds a request from verb parameters. URLs carry colons of
// their own, so the parameters are rejoined up to the last method token:
// url[:method[:body]].
func requestOf(inv *pipeline.Invocation) (fetch.Request, error) {
	parts := make([]string, len(inv.Args))
	for i, a := range inv.Args {
		parts[i] = a.String()
	}

	req := fetch.Request{Method: "GET"}
	cut := len(parts)
	for i := len(parts) - 1; i > 0; i-- {
		if httpMethods[strings.ToUpper(parts[i])] {
			cut = i
			break
		}
	}
	req.URL = strings.Join(parts[:cut], ":")
	if cut < len(parts) {
		req.Method = strings.ToUpper(parts[cut])
		req.Body = strings.Join(parts[cut+1:], ":")
	}
	if req.URL == "" {
		return req, fmt.Errorf("%w: url", dperrors.ErrMissingArgument)
	}
	return req, nil
}

// ajaxVerb fetches a resource and yields its body as text:
// |ajax:url[:method[:body]]
func ajaxVerb(f Fetcher) pipeline.Verb {
	return func(inv *pipeline.Invocation) pipeline.Result {
		if f == nil {
			return pipeline.Fail(fmt.Errorf("no fetcher configured"))
		}
		req, err := requestOf(inv)
		if err != nil {
			return pipeline.Fail(err)
		}
		inv.Logger.Debug("fetching", "method", req.Method, "url", req.URL)

		return pipeline.Await(pipeline.Async(inv.Context, func(ctx context.Context) (types.Value, error) {
			body, err := f.Do(ctx, req)
			if err != nil {
				return types.Undefined(), err
			}
			return types.String(body), nil
		}))
	}
}

// varsVerb fetches a JSON object and merges its fields into the active
// scope: |vars:url. Failures are logged and yield undefined.
func varsVerb(f Fetcher) pipeline.Verb {
	return func(inv *pipeline.Invocation) pipeline.Result {
		if f == nil {
			return pipeline.Fail(fmt.Errorf("no fetcher configured"))
		}
		req, err := requestOf(inv)
		if err != nil {
			return pipeline.Fail(err)
		}

		future := pipeline.Async(inv.Context, func(ctx context.Context) (types.Value, error) {
			body, err := f.Do(ctx, req)
			if err != nil {
				return types.Undefined(), err
			}
			var data map[string]any
			if err := json.Unmarshal([]byte(body), &data); err != nil {
				return types.Undefined(), fmt.Errorf("decode %s: %w", req.URL, err)
			}
			return types.Object(data), nil
		})

		return pipeline.Await(future).
			Then(func(v types.Value) (types.Value, error) {
				data, _ := v.Interface().(map[string]any)
				vars := inv.Scope.Vars()
				for name, field := range data {
					vars.Set(name, types.From(field))
				}
				inv.Logger.Debug("loaded variables", "url", req.URL, "count", len(data))
				return v, nil
			}).
			Catch(func(err error) (types.Value, error) {
				inv.Logger.Error("failed to load variables", "url", req.URL, "error", err)
				return types.Undefined(), nil
			})
	}
}
