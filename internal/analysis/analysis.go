// Package analysis is the boundary to the external analysis engine. The
// engine's output is an opaque serializable blob; only the job lifecycle
// around it is owned here.
package analysis

import "context"

// Runner executes one analysis against a provider organization using an
// already-valid access token.
type Runner interface {
	Run(ctx context.Context, accessToken, externalTenantID string) ([]byte, error)
}
