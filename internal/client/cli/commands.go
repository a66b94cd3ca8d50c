package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var errUsage = errors.New("usage")

func report(err error) error {
	if err != nil && !errors.Is(err, errUsage) {
		printlnFn("error:", err)
	}
	return err
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%q is not a positive number", s)
	}
	return v, nil
}

// Grant handles "grant <owner> <gb>".
func (a *App) Grant(ctx context.Context, args []string) error {
	if len(args) != 2 {
		printlnFn("Usage: grant <owner> <gb>")
		return errUsage
	}
	gb, err := parseFloat(args[1])
	if err != nil {
		return report(err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	total, err := a.api.GrantBonus(ctx, args[0], gb)
	if err != nil {
		return report(err)
	}
	printlnFn(fmt.Sprintf("granted %.2f GB to %s (bonus total %.2f GB)", gb, args[0], total))
	return nil
}

// Tier handles "tier <owner> <tierId>".
func (a *App) Tier(ctx context.Context, args []string) error {
	if len(args) != 2 {
		printlnFn("Usage: tier <owner> <tierId>")
		return errUsage
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return report(fmt.Errorf("%q is not a tier id", args[1]))
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := a.api.AssignTier(ctx, args[0], id); err != nil {
		return report(err)
	}
	printlnFn(fmt.Sprintf("%s moved to tier %d", args[0], id))
	return nil
}

// Special handles "special <gb> <maxUses> [createdBy]". Zero uses means
// unlimited.
func (a *App) Special(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		printlnFn("Usage: special <gb> <maxUses> [createdBy]")
		return errUsage
	}
	gb, err := parseFloat(args[0])
	if err != nil {
		return report(err)
	}
	maxUses, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || maxUses < 0 {
		return report(fmt.Errorf("%q is not a use count", args[1]))
	}
	createdBy := "admin"
	if len(args) == 3 {
		createdBy = args[2]
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	code, err := a.api.IssueSpecialCode(ctx, createdBy, gb, maxUses)
	if err != nil {
		return report(err)
	}
	printlnFn(code)
	return nil
}

// Found handles "found <owner> [class]".
func (a *App) Found(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		printlnFn("Usage: found <owner> [class]")
		return errUsage
	}
	class := ""
	if len(args) == 2 {
		class = args[1]
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	fc, err := a.api.IssueFoundCode(ctx, args[0], class)
	if err != nil {
		return report(err)
	}
	printlnFn(fmt.Sprintf("%s (%s, %.0f GB)", fc.Code, fc.Class, fc.GB))
	return nil
}

// Token handles "token <owner> [hours]".
func (a *App) Token(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		printlnFn("Usage: token <owner> [hours]")
		return errUsage
	}
	var hours float64
	if len(args) == 2 {
		h, err := parseFloat(args[1])
		if err != nil {
			return report(err)
		}
		hours = h
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	tok, err := a.api.IssueAccessToken(ctx, args[0], hours)
	if err != nil {
		return report(err)
	}
	printlnFn(tok)
	return nil
}
