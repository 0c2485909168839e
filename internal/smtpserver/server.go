package smtpserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.io/infrasutra/spamwatch/internal/pipeline"
)

const defaultDomain = "spamwatch"

type AuthConfig struct {
	Enabled  bool
	Username string
	Password string
}

type Server struct {
	smtp     *smtp.Server
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func New(p *pipeline.Pipeline, logger *slog.Logger, addr string, authCfg AuthConfig) *Server {
	backend := &backend{
		pipeline:     p,
		logger:       logger,
		authEnabled:  authCfg.Enabled,
		authUsername: authCfg.Username,
		authPassword: authCfg.Password,
	}
	server := smtp.NewServer(backend)
	server.Addr = addr
	server.Domain = defaultDomain
	server.AllowInsecureAuth = true
	server.ReadTimeout = 15 * time.Second
	server.WriteTimeout = 15 * time.Second
	server.MaxRecipients = 100
	server.MaxMessageBytes = 25 << 20

	return &Server{smtp: server, pipeline: p, logger: logger}
}

// ListenAndServe binds the listener first so the listening status broadcast
// only goes out once the port is actually open.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.smtp.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.smtp.Addr, err)
	}
	s.pipeline.SetListening(true)
	s.logger.Info("smtp server listening", "addr", s.smtp.Addr)
	return s.smtp.Serve(ln)
}

func (s *Server) Close() error {
	err := s.smtp.Close()
	s.pipeline.SetListening(false)
	return err
}

type backend struct {
	pipeline     *pipeline.Pipeline
	logger       *slog.Logger
	authEnabled  bool
	authUsername string
	authPassword string
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend       *backend
	from          string
	to            []string
	authenticated bool
}

func (s *session) AuthMechanisms() []string {
	if s.backend.authEnabled {
		return []string{sasl.Plain}
	}
	return nil
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	if !s.backend.authEnabled {
		return nil, errors.New("authentication not enabled")
	}
	if mech != sasl.Plain {
		return nil, errors.New("unsupported authentication mechanism")
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username == s.backend.authUsername && password == s.backend.authPassword {
			s.authenticated = true
			return nil
		}
		return errors.New("invalid credentials")
	}), nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.backend.authEnabled && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.from = normalizeEmail(from)
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.authEnabled && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.to = append(s.to, normalizeEmail(to))
	return nil
}

// Data hands the message to the pipeline and accepts unconditionally. The
// pipeline absorbs its own failures; a delivery is never bounced for them.
func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.pipeline.Deliver(s.from, s.to, data)
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
