package mailbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/rate"
	"github.com/spigell/job-inbox/internal/secrets"
	"github.com/spigell/job-inbox/internal/tracker"
	"github.com/spigell/job-inbox/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	defaultGmailLabel = "job-inbox/processed"
	gmailUser         = "me"
	gmailPageSize     = 500
	// batchModifyLimit is the maximum number of ids per BatchModify call.
	batchModifyLimit = 1000
)

type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials-file"`
	Token           string `mapstructure:"token"`
	TokenFile       string `mapstructure:"token-file"`
	// Query narrows the search, for example "in:inbox".
	Query      string `mapstructure:"query"`
	Label      string `mapstructure:"label"`
	SkipMarked bool   `mapstructure:"skip-marked"`
	// RPS bounds Gmail API calls per second.
	RPS int `mapstructure:"rps"`
}

// GmailAPI is the narrow Gmail surface the source needs.
type GmailAPI interface {
	List(ctx context.Context, query, pageToken string, pageSize int64) ([]string, string, error)
	// GetRaw returns the message with its Raw field populated.
	GetRaw(ctx context.Context, id string) (*gmail.Message, error)
	EnsureLabel(ctx context.Context, name string) (string, error)
	BatchModify(ctx context.Context, ids []string, addLabelIDs []string) error
}

// NewGmailService authorizes with an installed-app OAuth client and a stored token.
func NewGmailService(ctx context.Context, cfg *GmailConfig) (*gmail.Service, error) {
	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading gmail credentials %q: %w", cfg.CredentialsFile, err)
	}

	oauthCfg, err := google.ConfigFromJSON(credentials, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing gmail credentials: %w", err)
	}

	rawToken, err := secrets.Load(secrets.Source{
		Name:  "gmail token",
		Value: cfg.Token,
		File:  cfg.TokenFile,
	})
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal([]byte(rawToken), token); err != nil {
		return nil, fmt.Errorf("decoding gmail token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return svc, nil
}

type googleAPI struct {
	svc *gmail.Service
}

// NewGoogleAPI adapts *gmail.Service to GmailAPI.
func NewGoogleAPI(svc *gmail.Service) GmailAPI {
	return &googleAPI{svc: svc}
}

func (g *googleAPI) List(ctx context.Context, query, pageToken string, pageSize int64) ([]string, string, error) {
	call := g.svc.Users.Messages.List(gmailUser).Q(query).MaxResults(pageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", err
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}

	return ids, res.NextPageToken, nil
}

func (g *googleAPI) GetRaw(ctx context.Context, id string) (*gmail.Message, error) {
	return g.svc.Users.Messages.Get(gmailUser, id).Format("raw").Context(ctx).Do()
}

func (g *googleAPI) EnsureLabel(ctx context.Context, name string) (string, error) {
	labels, err := g.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	for _, l := range labels.Labels {
		if l.Name == name {
			return l.Id, nil
		}
	}

	created, err := g.svc.Users.Labels.Create(gmailUser, &gmail.Label{Name: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}

	return created.Id, nil
}

func (g *googleAPI) BatchModify(ctx context.Context, ids []string, addLabelIDs []string) error {
	req := &gmail.BatchModifyMessagesRequest{Ids: ids, AddLabelIds: addLabelIDs}
	return g.svc.Users.Messages.BatchModify(gmailUser, req).Context(ctx).Do()
}

type GmailSource struct {
	api     GmailAPI
	query   string
	label   string
	skip    bool
	limiter rate.Limiter
	logger  *zap.Logger

	mu      sync.Mutex
	labelID string
}

func NewGmailSource(api GmailAPI, cfg *GmailConfig, log *zap.Logger) *GmailSource {
	s := &GmailSource{
		api:     api,
		query:   strings.TrimSpace(cfg.Query),
		label:   cfg.Label,
		skip:    cfg.SkipMarked,
		limiter: rate.Unlimited{},
	}
	if s.label == "" {
		s.label = defaultGmailLabel
	}
	if cfg.RPS > 0 {
		s.limiter = rate.NewTokenBucket(cfg.RPS)
	}
	s.logger = logger.WithSource(log, ProviderGmail, s.query)

	return s
}

func (s *GmailSource) Name() string {
	return ProviderGmail
}

func (s *GmailSource) buildQuery(since time.Time) string {
	parts := make([]string, 0, 3)
	if !since.IsZero() {
		parts = append(parts, fmt.Sprintf("after:%d", since.Unix()))
	}
	if s.skip {
		parts = append(parts, fmt.Sprintf("-label:%q", s.label))
	}
	if s.query != "" {
		parts = append(parts, s.query)
	}
	return strings.Join(parts, " ")
}

func (s *GmailSource) Fetch(ctx context.Context, since time.Time, limit int) ([]tracker.Email, error) {
	query := s.buildQuery(since)

	var ids []string
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, next, err := s.api.List(ctx, query, pageToken, gmailPageSize)
		if err != nil {
			return nil, fmt.Errorf("listing gmail messages (%s): %w", query, err)
		}
		ids = append(ids, page...)

		if next == "" {
			break
		}
		pageToken = next
	}

	s.logger.Debug("gmail search finished", zap.String("query", query), zap.Int("found", len(ids)))

	// the API lists newest first
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	ids = limitOldest(ids, limit)

	emails := make([]tracker.Email, 0, len(ids))
	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		msg, err := s.api.GetRaw(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("getting gmail message %s: %w", id, err)
		}

		email, err := decodeGmailMessage(msg)
		if err != nil {
			s.logger.Warn("skipping undecodable message", zap.String(logger.FieldEmailID, id), zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}

	sortOldestFirst(emails)

	return emails, nil
}

func decodeGmailMessage(msg *gmail.Message) (tracker.Email, error) {
	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(msg.Raw, "="))
		if err != nil {
			return tracker.Email{}, fmt.Errorf("decoding raw message: %w", err)
		}
	}

	email, err := DecodeMessage(msg.Id, msg.ThreadId, bytes.NewReader(raw))
	if err != nil {
		return email, err
	}

	// internal date is when Gmail received the message, in milliseconds
	if msg.InternalDate > 0 {
		email.Date = time.UnixMilli(msg.InternalDate).UTC().Format(time.RFC3339)
	}

	return email, nil
}

func (s *GmailSource) ensureLabel(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.labelID != "" {
		return s.labelID, nil
	}

	id, err := s.api.EnsureLabel(ctx, s.label)
	if err != nil {
		return "", fmt.Errorf("ensuring gmail label %q: %w", s.label, err)
	}
	s.labelID = id

	return id, nil
}

func (s *GmailSource) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	labelID, err := s.ensureLabel(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range utils.Chunk(ids, batchModifyLimit) {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.api.BatchModify(ctx, chunk, []string{labelID}); err != nil {
			return fmt.Errorf("labelling %d gmail messages: %w", len(chunk), err)
		}
	}

	s.logger.Info("messages labelled", zap.Int("count", len(ids)), zap.String("label", s.label))
	return nil
}

// Close stops the rate limiter.
func (s *GmailSource) Close() error {
	if tb, ok := s.limiter.(*rate.TokenBucket); ok {
		tb.Stop()
	}
	return nil
}

var _ Source = (*GmailSource)(nil)
