package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/sirupsen/logrus"
)

// Application error codes, in the JSON-RPC implementation-defined range.
const (
	codeUnauthorized      = -32001
	codeForbidden         = -32003
	codeNotFound          = -32004
	codeConflict          = -32009
	codeInvalidTransition = -32022
	codeInvalidParams     = -32602
	codeInternal          = -32603
)

type Server struct {
	service  *application.BackofficeService
	log      logrus.FieldLogger
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.BackofficeService, log logrus.FieldLogger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	s := &Server{service: service, log: log, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if resp.Error != nil {
			s.log.WithFields(logrus.Fields{"method": req.Method, "code": resp.Error.Code}).Debug("rpc call failed")
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "auth.login":
		return s.handleAuthLogin(ctx, req)
	case "auth.whoami":
		identity, rpcResp, ok := s.authz(ctx, req, "")
		if !ok {
			return rpcResp
		}
		return success(req.ID, map[string]any{"id": identity.User.ID, "email": identity.User.Email})
	case "properties.list":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionPropertyRead); !ok {
			return rpcResp
		}
		var p struct {
			Q     string `json:"q"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListProperties(ctx, p.Q, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "properties.get":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionPropertyRead); !ok {
			return rpcResp
		}
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetProperty(ctx, p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "properties.create":
		identity, rpcResp, ok := s.authz(ctx, req, application.PermissionPropertyWrite)
		if !ok {
			return rpcResp
		}
		var p application.CreatePropertyInput
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateProperty(ctx, &identity.User.ID, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "tokenization.apply":
		identity, rpcResp, ok := s.authz(ctx, req, application.PermissionTokenizationAct)
		if !ok {
			return rpcResp
		}
		var p struct {
			PropertyID uint   `json:"property_id"`
			Action     string `json:"action"`
			Reason     string `json:"reason"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ApplyTokenizationAction(ctx, application.TokenActionRequest{
			PropertyID: p.PropertyID,
			Action:     domain.TokenAction(strings.ToLower(strings.TrimSpace(p.Action))),
			ActorID:    identity.User.ID,
			Reason:     p.Reason,
			UserAgent:  "rentzy-rpc",
		})
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "tokenization.logs":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionPropertyRead); !ok {
			return rpcResp
		}
		var p struct {
			PropertyID *uint  `json:"property_id"`
			Action     string `json:"action"`
			Limit      int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListActionLogs(ctx, domain.ActionLogQuery{EntityID: p.PropertyID, Action: domain.TokenAction(p.Action), Limit: p.Limit})
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "tokenization.overview":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionPropertyRead); !ok {
			return rpcResp
		}
		out, err := s.service.TokenizationOverview(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "access.user.list":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionAccessRead); !ok {
			return rpcResp
		}
		var p struct {
			Q string `json:"q"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListUsers(ctx, p.Q, 500)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "access.user.create":
		identity, rpcResp, ok := s.authz(ctx, req, application.PermissionAccessWrite)
		if !ok {
			return rpcResp
		}
		var p struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			RoleID   uint   `json:"role_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateUser(ctx, p.Email, p.Password, p.RoleID)
		if err != nil {
			return appError(req.ID, err)
		}
		s.service.WriteAudit(ctx, &identity.User.ID, "access.user.create", "user", &out.ID, "rpc")
		return success(req.ID, out)
	case "access.role.list":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionAccessRead); !ok {
			return rpcResp
		}
		out, err := s.service.ListRoles(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	case "access.role.assign":
		identity, rpcResp, ok := s.authz(ctx, req, application.PermissionAccessWrite)
		if !ok {
			return rpcResp
		}
		var p struct {
			UserID uint `json:"user_id"`
			RoleID uint `json:"role_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.AssignRole(ctx, p.UserID, p.RoleID); err != nil {
			return appError(req.ID, err)
		}
		s.service.WriteAudit(ctx, &identity.User.ID, "access.role.assign", "user", &p.UserID, "rpc")
		return success(req.ID, map[string]any{"ok": true})
	case "audit.list":
		if _, rpcResp, ok := s.authz(ctx, req, application.PermissionAuditRead); !ok {
			return rpcResp
		}
		var p struct {
			Limit int `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListAuditLogs(ctx, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return success(req.ID, out)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) handleAuthLogin(ctx context.Context, req request) response {
	var p struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		TokenName string `json:"token_name"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	u, token, err := s.service.LoginWithAPIToken(ctx, p.Email, p.Password, p.TokenName, nil)
	if err != nil {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeUnauthorized, Message: "invalid credentials"}, ID: req.ID}
	}
	return success(req.ID, map[string]any{"user_id": u.ID, "email": u.Email, "token": token})
}

func (s *Server) authz(ctx context.Context, req request, permission string) (domain.Identity, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.Identity{}, invalidParams(req.ID), false
	}
	identity, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: codeUnauthorized, Message: "unauthorized"}, ID: req.ID}, false
	}
	if permission != "" && !s.service.Can(identity, permission) {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: codeForbidden, Message: "forbidden"}, ID: req.ID}, false
	}
	return identity, response{}, true
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func success(id any, result any) response {
	return response{JSONRPC: "2.0", Result: result, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidParams, Message: "invalid params"}, ID: id}
}

// appError maps domain errors onto application codes; the message is the
// error text as is.
func appError(id any, err error) response {
	code := codeInternal
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code = codeInvalidParams
	case errors.Is(err, domain.ErrUnauthorized):
		code = codeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		code = codeForbidden
	case errors.Is(err, domain.ErrNotFound):
		code = codeNotFound
	case errors.Is(err, domain.ErrConflict):
		code = codeConflict
	case errors.Is(err, domain.ErrInvalidTransition):
		code = codeInvalidTransition
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: err.Error()}, ID: id}
}
