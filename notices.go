package auth

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoticeKey identifies a user facing notice.
type NoticeKey string

const (
	// NoticeSessionExpired is raised whenever the provider reports an invalid
	// session (status 410).
	NoticeSessionExpired NoticeKey = "auth.notice.session_expired"
)

// NoticeLevel mirrors toast severities.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a rendered, localized message for a UI collaborator.
type Notice struct {
	Key     NoticeKey
	Level   NoticeLevel
	Locale  string
	Message string
}

// Notifier receives user visible notices.
type Notifier interface {
	Notify(ctx context.Context, key NoticeKey)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, key NoticeKey)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, key NoticeKey) {
	if f == nil {
		return
	}
	f(ctx, key)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, NoticeKey) {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

var supportedNoticeLocales = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
}

var noticeLevels = map[NoticeKey]NoticeLevel{
	NoticeSessionExpired: NoticeWarning,
}

func init() {
	catalog := map[language.Tag]map[NoticeKey]string{
		language.English: {
			NoticeSessionExpired: "Your session has expired. Please log in again.",
		},
		language.German: {
			NoticeSessionExpired: "Ihre Sitzung ist abgelaufen. Bitte melden Sie sich erneut an.",
		},
		language.Spanish: {
			NoticeSessionExpired: "Tu sesión ha caducado. Inicia sesión de nuevo.",
		},
	}
	for tag, messages := range catalog {
		for key, msg := range messages {
			if err := message.SetString(tag, string(key), msg); err != nil {
				panic(err)
			}
		}
	}
}

// LocalizedNotifier renders notices for a locale and hands them to deliver.
type LocalizedNotifier struct {
	locale  language.Tag
	printer *message.Printer
	deliver func(ctx context.Context, notice Notice)
}

// NewLocalizedNotifier resolves locale against the supported catalogs,
// falling back to English.
func NewLocalizedNotifier(locale string, deliver func(ctx context.Context, notice Notice)) *LocalizedNotifier {
	tag := matchNoticeLocale(locale)
	return &LocalizedNotifier{
		locale:  tag,
		printer: message.NewPrinter(tag),
		deliver: deliver,
	}
}

// Render returns the localized notice without delivering it.
func (n *LocalizedNotifier) Render(key NoticeKey) Notice {
	level, ok := noticeLevels[key]
	if !ok {
		level = NoticeInfo
	}
	return Notice{
		Key:     key,
		Level:   level,
		Locale:  n.locale.String(),
		Message: n.printer.Sprintf(string(key)),
	}
}

// Notify implements Notifier.
func (n *LocalizedNotifier) Notify(ctx context.Context, key NoticeKey) {
	if n == nil || n.deliver == nil {
		return
	}
	n.deliver(ctx, n.Render(key))
}

func matchNoticeLocale(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	matcher := language.NewMatcher(supportedNoticeLocales)
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supportedNoticeLocales[idx]
}
