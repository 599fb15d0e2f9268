package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/invopop/ctxi18n"
	"github.com/invopop/ctxi18n/i18n"
)

// WithI18n loads the language bundles in fs.
// This will panic if APP_FALLBACKLANG has not been set or if no bundle could be found for the
// fallback language.
func (server *Server[state]) WithI18n(fs fs.FS) *Server[state] {
	lang := i18n.Code(server.cfg.App.FallbackLang)
	if len(lang) == 0 {
		panic("You need to set a fallbacklang in the project config before calling WithI18n!")
	}
	if err := ctxi18n.LoadWithDefault(fs, lang); err != nil {
		panic(err)
	}
	ctxi18n.DefaultLocale = lang

	return server
}

// DetectLanguage is middleware that selects the response language from the Accept-Language header.
// If the requested language is not available, it will fallback to the configured fallback language.
// This will return an error only if no bundle could be found for the configured fallback language.
func DetectLanguage[state any](ex *Exchange, _ state) (context.Context, error) {
	ctx := ex.Context()

	// Skip this middleware if no language was set
	if len(ex.Cfg.App.FallbackLang) == 0 {
		return ctx, nil
	}

	localized, err := ctxi18n.WithLocale(ctx, ex.GetHeader("Accept-Language"))
	if errors.Is(err, ctxi18n.ErrMissingLocale) {
		return ctx, fmt.Errorf(
			"no language bundle found for the fallback language %q: %w",
			ex.Cfg.App.FallbackLang,
			err,
		)
	} else if err != nil {
		return ctx, err
	}

	ex.LogField("lang", slog.StringValue(Language(localized)))

	return localized, nil
}

// Language returns the code of the language that is currently active, or the empty string if none is.
func Language(ctx context.Context) string {
	locale := ctxi18n.Locale(ctx)
	if locale == nil {
		return ""
	}
	return string(locale.Code())
}
