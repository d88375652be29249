package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kushmahi07/Rentzy-sub001/internal/application"
)

func useRPC(cfg cliConfig) bool {
	return cfg.Transport == "uds"
}

func withQuery(path string, q url.Values) string {
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

func doLogin(ctx context.Context, cfg cliConfig, email, password, tokenName string, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.login", map[string]any{
			"email":      email,
			"password":   password,
			"token_name": tokenName,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":      email,
		"password":   password,
		"mode":       "token",
		"token_name": tokenName,
	}, out)
}

func doWhoAmI(ctx context.Context, cfg cliConfig, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.whoami", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/auth/whoami", nil, out)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	if useRPC(cfg) {
		return nil
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func doPropertiesList(ctx context.Context, cfg cliConfig, q string, limit int, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "properties.list", map[string]any{"token": cfg.Token, "q": q, "limit": limit}, out)
	}
	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, withQuery("/api/properties", params), nil, out)
}

func doPropertyGet(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "properties.get", map[string]any{"token": cfg.Token, "id": id}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/properties/"+uintToString(id), nil, out)
}

func doPropertyCreate(ctx context.Context, cfg cliConfig, in application.CreatePropertyInput, out any) error {
	if useRPC(cfg) {
		params := map[string]any{"token": cfg.Token, "name": in.Name, "location": in.Location}
		if in.Token != nil {
			params["tokenState"] = in.Token
		}
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "properties.create", params, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/properties", in, out)
}

func doTokenAction(ctx context.Context, cfg cliConfig, propertyID uint, action, reason string, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "tokenization.apply", map[string]any{
			"token":       cfg.Token,
			"property_id": propertyID,
			"action":      action,
			"reason":      reason,
		}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/properties/" + uintToString(propertyID) + "/tokenization/actions"
	return client.request(ctx, http.MethodPost, path, map[string]any{"action": action, "reason": reason}, out)
}

func doActionLogs(ctx context.Context, cfg cliConfig, propertyID *uint, action string, limit int, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "tokenization.logs", map[string]any{
			"token":       cfg.Token,
			"property_id": propertyID,
			"action":      action,
			"limit":       limit,
		}, out)
	}
	params := url.Values{}
	if action != "" {
		params.Set("action", action)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/tokenization/logs"
	if propertyID != nil {
		path = "/api/properties/" + uintToString(*propertyID) + "/tokenization/logs"
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, withQuery(path, params), nil, out)
}

func doOverview(ctx context.Context, cfg cliConfig, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "tokenization.overview", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/tokenization/overview", nil, out)
}

func doUsersList(ctx context.Context, cfg cliConfig, q string, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "access.user.list", map[string]any{"token": cfg.Token, "q": q}, out)
	}
	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, withQuery("/api/access/users", params), nil, out)
}

func doUsersCreate(ctx context.Context, cfg cliConfig, email, password string, roleID uint, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "access.user.create", map[string]any{"token": cfg.Token, "email": email, "password": password, "role_id": roleID}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/access/users", map[string]any{"email": email, "password": password, "role_id": roleID}, out)
}

func doRolesList(ctx context.Context, cfg cliConfig, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "access.role.list", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/access/roles", nil, out)
}

func doAssignRole(ctx context.Context, cfg cliConfig, userID, roleID uint, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "access.role.assign", map[string]any{"token": cfg.Token, "user_id": userID, "role_id": roleID}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/access/assign-role", map[string]any{"user_id": userID, "role_id": roleID}, out)
}

func doAuditList(ctx context.Context, cfg cliConfig, limit int, out any) error {
	if useRPC(cfg) {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "audit.list", map[string]any{"token": cfg.Token, "limit": limit}, out)
	}
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, withQuery("/api/audit/logs", params), nil, out)
}
