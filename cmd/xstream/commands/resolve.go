package commands

import (
	"context"
	"fmt"
	"strings"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/internal/entities"
)

// resolveUser turns a numeric id or a (optionally @ prefixed) login into an account id.
func resolveUser(ctx context.Context, arg string) (int64, error) {
	id, err := entities.ParseID(arg)
	if err == nil {
		return id, nil
	}
	login := strings.TrimPrefix(arg, "@")
	account, err := globals.Get(ctx).API.UserByLogin(ctx, login)
	if err != nil {
		return 0, fmt.Errorf("resolve user %q: %w", login, err)
	}
	return account.ID, nil
}

func parseID(kind, arg string) (int64, error) {
	id, err := entities.ParseID(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, arg, err)
	}
	return id, nil
}
