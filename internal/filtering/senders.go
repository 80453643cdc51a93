package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-inbox/internal/tracker"
)

type sendersFilter struct {
	addresses map[string]struct{}
	domains   []string
}

// NewSenders creates a filter that removes emails from configured addresses or domains.
// An entry without "@" or starting with "@" is a domain and also matches its subdomains.
func NewSenders() Filter {
	return &sendersFilter{}
}

func (f *sendersFilter) Name() string { return "senders" }

func (f *sendersFilter) Disable(string) {}

func (f *sendersFilter) IsEnabled() bool { return true }

func (f *sendersFilter) Validate(cfg *Config) error {
	f.addresses = map[string]struct{}{}
	f.domains = nil
	if cfg == nil {
		return nil
	}

	for _, entry := range cfg.Senders {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "" || entry == "@":
			continue
		case strings.HasPrefix(entry, "@"):
			f.domains = append(f.domains, entry[1:])
		case strings.Contains(entry, "@"):
			f.addresses[entry] = struct{}{}
		default:
			f.domains = append(f.domains, entry)
		}
	}
	return nil
}

func (f *sendersFilter) blocked(address string) bool {
	if _, ok := f.addresses[address]; ok {
		return true
	}

	at := strings.LastIndex(address, "@")
	if at < 0 {
		return false
	}
	host := address[at+1:]
	for _, domain := range f.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (f *sendersFilter) Apply(_ context.Context, deps Deps, e *tracker.Emails) (*tracker.Emails, Step, error) {
	initial := e.Len()
	if len(f.addresses) == 0 && len(f.domains) == 0 {
		return e, Step{Initial: initial, Dropped: 0, Left: e.Len()}, nil
	}

	excluded := e.Filter(func(email *tracker.Email) bool {
		return !f.blocked(email.SenderAddress())
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding emails by sender",
			zap.Strings("excluded_emails", excluded),
			zap.Int("emails_left", e.Len()),
		)
	}

	return e, Step{Initial: initial, Dropped: len(excluded), Left: e.Len()}, nil
}

func (f *sendersFilter) Status() Status {
	details := map[string]string{}
	entries := make([]string, 0, len(f.addresses)+len(f.domains))
	for address := range f.addresses {
		entries = append(entries, address)
	}
	entries = append(entries, f.domains...)
	if len(entries) > 0 {
		details["senders"] = strings.Join(entries, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
