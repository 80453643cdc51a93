package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/secrets"
	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"
)

const (
	defaultIMAPMailbox = "INBOX"
	defaultIMAPFlag    = "$JobTracked"
)

type IMAPConfig struct {
	// Address is host:port of an implicit TLS endpoint.
	Address      string `mapstructure:"address"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	Mailbox      string `mapstructure:"mailbox"`
	Flag         string `mapstructure:"flag"`
	// SkipMarked leaves out messages already carrying Flag at search time.
	SkipMarked bool `mapstructure:"skip-marked"`
}

// imapClient is the part of *client.Client the source needs.
type imapClient interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

type dialFunc func(address string) (imapClient, error)

type IMAPSource struct {
	address  string
	username string
	password string
	mailbox  string
	flag     string
	skip     bool
	dial     dialFunc
	logger   *zap.Logger
}

func NewIMAPSource(cfg *IMAPConfig, log *zap.Logger) (*IMAPSource, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, fmt.Errorf("imap address is not configured")
	}

	password, err := secrets.Load(secrets.Source{
		Name:  "imap password",
		Value: cfg.Password,
		File:  cfg.PasswordFile,
	})
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("parsing imap address %q: %w", cfg.Address, err)
	}

	s := &IMAPSource{
		address:  cfg.Address,
		username: cfg.Username,
		password: password,
		mailbox:  cfg.Mailbox,
		flag:     cfg.Flag,
		skip:     cfg.SkipMarked,
		dial: func(address string) (imapClient, error) {
			return client.DialTLS(address, &tls.Config{ServerName: host})
		},
	}
	if s.mailbox == "" {
		s.mailbox = defaultIMAPMailbox
	}
	if s.flag == "" {
		s.flag = defaultIMAPFlag
	}
	s.logger = logger.WithSource(log, ProviderIMAP, s.mailbox)

	return s, nil
}

func (s *IMAPSource) Name() string {
	return ProviderIMAP
}

func (s *IMAPSource) connect(readOnly bool) (imapClient, error) {
	c, err := s.dial(s.address)
	if err != nil {
		return nil, fmt.Errorf("dialing imap server %s: %w", s.address, err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login as %s: %w", s.username, err)
	}

	if _, err := c.Select(s.mailbox, readOnly); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("selecting mailbox %s: %w", s.mailbox, err)
	}

	return c, nil
}

func (s *IMAPSource) Fetch(ctx context.Context, since time.Time, limit int) ([]tracker.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := s.connect(true)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	criteria := imap.NewSearchCriteria()
	if !since.IsZero() {
		// SINCE has day granularity, the caller filters the rest
		criteria.Since = since
	}
	if s.skip {
		criteria.WithoutFlags = []string{s.flag}
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching mailbox %s: %w", s.mailbox, err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	uids = limitOldest(uids, limit)

	s.logger.Debug("imap search finished", zap.Int("found", len(uids)), zap.Time("since", since))

	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	emails := make([]tracker.Email, 0, len(uids))
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			s.logger.Warn("imap message without body", zap.Uint32("uid", msg.Uid))
			continue
		}

		id := strconv.FormatUint(uint64(msg.Uid), 10)
		email, err := DecodeMessage(id, "", body)
		if err != nil {
			s.logger.Warn("skipping undecodable message", zap.String(logger.FieldEmailID, id), zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages from %s: %w", s.mailbox, err)
	}

	return emails, ctx.Err()
}

func (s *IMAPSource) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	for _, id := range ids {
		uid, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid imap uid %q: %w", id, err)
		}
		seqset.AddNum(uint32(uid))
	}

	c, err := s.connect(false)
	if err != nil {
		return err
	}
	defer c.Logout()

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{s.flag}, nil); err != nil {
		return fmt.Errorf("flagging %d messages with %s: %w", len(ids), s.flag, err)
	}

	s.logger.Info("messages flagged", zap.Int("count", len(ids)), zap.String("flag", s.flag))
	return nil
}

var _ Source = (*IMAPSource)(nil)
