package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/roomchat/internal/chat"
	"github.com/npezzotti/roomchat/internal/database"
	"github.com/npezzotti/roomchat/internal/server"
	"github.com/npezzotti/roomchat/internal/types"
)

const maxBodySize = 1 << 20

// params are the fields of a JSON or form encoded request body.
type params map[string]string

func (p params) get(key string) string {
	return p[key]
}

// flag reads checkbox style booleans: "on", "true", "1".
func (p params) flag(key string) bool {
	v := strings.TrimSpace(p[key])
	if v == "on" {
		return true
	}

	b, _ := strconv.ParseBool(v)
	return b
}

func readParams(w http.ResponseWriter, r *http.Request) (params, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}

		p := make(params, len(body))
		for k, v := range body {
			switch v := v.(type) {
			case string:
				p[k] = v
			case bool:
				p[k] = strconv.FormatBool(v)
			case float64:
				p[k] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		return p, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}

	p := make(params, len(r.PostForm))
	for k := range r.PostForm {
		p[k] = r.PostForm.Get(k)
	}
	return p, nil
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) writeSuccess(w http.ResponseWriter, resp types.Response) {
	resp.Status = types.StatusSuccess
	s.writeJson(w, http.StatusOK, resp)
}

func (s *ChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Internal() {
		s.log.Println(errResp.Error())
	}

	s.writeJson(w, http.StatusOK, errResp.Response())
}

func (s *ChatApp) identity(w http.ResponseWriter, r *http.Request) (chat.Identity, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
	}

	return id, ok
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) invalidRoute(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, NewInvalidRouteError())
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(w, r)
	if err != nil {
		http.Redirect(w, r, "/fail", http.StatusSeeOther)
		return
	}

	user, err := s.svc.Authenticate(r.Context(), p.get("username"), p.get("password"))
	if err != nil {
		if !errors.Is(err, chat.ErrAuthFailure) {
			s.log.Printf("login: %v", err)
		}
		http.Redirect(w, r, "/fail", http.StatusSeeOther)
		return
	}

	token, err := s.createJwtForSession(chat.Identity{
		Id:       user.Id,
		Username: user.Username,
		Name:     user.Name,
	}, defaultJwtExpiration)
	if err != nil {
		s.log.Printf("create session token: %v", err)
		http.Redirect(w, r, "/fail", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (s *ChatApp) register(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(w, r)
	if err != nil {
		s.writeError(w, NewBadRequestError(err))
		return
	}

	user, err := s.svc.Register(r.Context(), chat.RegisterParams{
		Name:     p.get("name"),
		Username: p.get("username"),
		Password: p.get("password"),
		Admin:    p.flag("admin"),
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrUsernameTaken), errors.Is(err, chat.ErrInvalidCredentials):
			s.writeError(w, NewApiError(err))
		default:
			s.log.Printf("register: %v", err)
			s.writeError(w, &ApiError{Message: "not registered", Err: err})
		}
		return
	}

	s.log.Printf("registered user %q", user.Username)
	s.writeSuccess(w, types.Response{Msg: "registered"})
}

func (s *ChatApp) logout(w http.ResponseWriter, r *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, expiredJwtCookie())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *ChatApp) chatPage(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	entries, err := s.svc.ListConnections(r.Context(), id.Username)
	if err != nil {
		s.log.Printf("list connections for %q: %v", id.Username, err)
	}

	s.render(w, "chat", chatPageData{
		Name:        id.Name,
		Username:    id.Username,
		Connections: types.NewConnections(entries),
	})
}

func (s *ChatApp) addUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	p, err := readParams(w, r)
	if err != nil {
		s.writeError(w, NewBadRequestError(err))
		return
	}

	if _, err := s.svc.AddPrivateConnection(r.Context(), id, p.get("username")); err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	s.writeSuccess(w, types.Response{Msg: "connection added to each other's list"})
}

func (s *ChatApp) addRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	p, err := readParams(w, r)
	if err != nil {
		s.writeError(w, NewBadRequestError(err))
		return
	}

	entry, err := s.svc.AddRoomConnection(r.Context(), id.Username, p.get("roomid"), p.get("roomname"))
	if err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	s.writeSuccess(w, types.Response{
		Msg:         "room added to connection list",
		Connections: types.NewConnections([]database.ConnectionEntry{entry}),
	})
}

func (s *ChatApp) getConnections(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	entries, err := s.svc.ListConnections(r.Context(), id.Username)
	if err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	s.writeSuccess(w, types.Response{
		Msg:         "connections found",
		Connections: types.NewConnections(entries),
	})
}

func (s *ChatApp) getRoomMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	p, err := readParams(w, r)
	if err != nil {
		s.writeError(w, NewBadRequestError(err))
		return
	}

	roomId := strings.TrimSpace(p.get("roomid"))
	if err := s.svc.Authorize(r.Context(), id.Username, roomId); err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	messages, err := s.svc.ReadMessages(r.Context(), roomId)
	if err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	s.writeSuccess(w, types.Response{
		Msg:      "room messages found",
		Messages: types.NewMessages(messages),
	})
}

func (s *ChatApp) saveMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	p, err := readParams(w, r)
	if err != nil {
		s.writeError(w, NewBadRequestError(err))
		return
	}

	roomId := strings.TrimSpace(p.get("roomid"))
	if err := s.svc.Authorize(r.Context(), id.Username, roomId); err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	_, err = s.svc.AppendMessage(r.Context(), chat.AppendParams{
		TargetId:       roomId,
		TargetName:     p.get("roomname"),
		Text:           p.get("message"),
		SenderUsername: id.Username,
		SenderName:     id.Name,
	})
	if err != nil {
		s.writeError(w, NewApiError(err))
		return
	}

	s.writeSuccess(w, types.Response{Msg: "message saved"})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(id, conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
