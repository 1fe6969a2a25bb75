package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Translations map[string]string

// Language translates UI strings and formats dates for one locale.
type Language struct {
	found  bool
	tr     Translations
	locale locales.Translator
}

// TransPool loads languages from <basePath>/<lang>.yaml on first use.
type TransPool struct {
	basePath  string
	logger    *zap.Logger
	mu        sync.Mutex
	languages map[string]*Language
}

var localeFactories = map[string]func() locales.Translator{
	"en": en.New,
	"de": de.New,
	"fr": fr.New,
}

func NewTransPool(basePath string, logger *zap.Logger) *TransPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransPool{
		basePath:  basePath,
		logger:    logger,
		languages: make(map[string]*Language),
	}
}

func NewLanguage(lang string) *Language {
	factory, ok := localeFactories[lang]
	if !ok {
		factory = en.New
	}
	return &Language{
		found:  false,
		tr:     make(Translations),
		locale: factory(),
	}
}

func (tp *TransPool) Get(lang string) *Language {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	l, ok := tp.languages[lang]
	if !ok {
		l = NewLanguage(lang)
		if err := tp.load(lang, l); err != nil {
			tp.logger.Warn("translations_load_failed", zap.String("language", lang), zap.Error(err))
		}
		tp.languages[lang] = l
	}
	return l
}

func (tp *TransPool) load(lang string, l *Language) error {
	if tp.basePath == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(tp.basePath, lang+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, &l.tr); err != nil {
		return err
	}
	l.found = true
	return nil
}

func (l *Language) Lang(text string) string {
	if !l.found {
		// Language was not found, return the string
		return text
	}
	res, ok := l.tr[text]
	if !ok {
		// Key was not found
		return text
	}
	// Return translated string
	return res
}

// FormatTime renders t as the locale's short date and medium time.
func (l *Language) FormatTime(t time.Time) string {
	return l.locale.FmtDateShort(t) + " " + l.locale.FmtTimeMedium(t)
}
