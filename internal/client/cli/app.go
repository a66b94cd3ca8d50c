// Package cli implements the interactive admin console for the collaborator
// service.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/config"
)

// collaboratorAPI is the subset of client.GRPCClient the console uses.
type collaboratorAPI interface {
	GrantBonus(ctx context.Context, owner string, gb float64) (float64, error)
	AssignTier(ctx context.Context, owner string, tierID int64) error
	IssueSpecialCode(ctx context.Context, createdBy string, gb float64, maxUses int64) (string, error)
	IssueFoundCode(ctx context.Context, owner, class string) (*client.FoundCode, error)
	IssueAccessToken(ctx context.Context, owner string, ttlHours float64) (string, error)
	Close() error
}

type App struct {
	config *config.Config
	api    collaboratorAPI
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewCollaboratorClientService(c.ServerEndpointAddr, c.CollaboratorToken)
	if err != nil {
		return nil, err
	}
	return &App{config: c, api: apiClient}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	printlnFn("gophdrive admin console (type 'help' for commands)")
	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
