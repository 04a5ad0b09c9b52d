package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"hwbot/internal/fault"
)

// Required environment variables, checked in this order.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overrides credentials with environment values when set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvPracticumToken); ok {
		c.Practicum.Token = v
	}
	if v, ok := lookup(EnvTelegramToken); ok {
		c.Telegram.Token = v
	}
	if v, ok := lookup(EnvTelegramChatID); ok {
		c.Telegram.ChatID = v
	}
}

// CheckTokens reports the first missing credential as a fault.KindConfig error.
func (c *Config) CheckTokens() error {
	creds := []struct{ name, value string }{
		{EnvPracticumToken, c.Practicum.Token},
		{EnvTelegramToken, c.Telegram.Token},
		{EnvTelegramChatID, c.Telegram.ChatID},
	}
	for _, cr := range creds {
		if strings.TrimSpace(cr.value) == "" {
			return &MissingEnvError{Name: cr.name}
		}
	}
	if _, err := c.ChatID(); err != nil {
		return err
	}
	return nil
}

// ChatID parses the chat identifier.
func (c *Config) ChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	if err != nil {
		return 0, fault.Wrap(fault.KindConfig, err, EnvTelegramChatID+" is not a numeric chat id")
	}
	return id, nil
}

// MissingEnvError names a required credential that was not provided.
type MissingEnvError struct{ Name string }

func (e *MissingEnvError) Error() string {
	return "Не хватает переменной окружения " + e.Name + ". Без нее бот не будет работать."
}

// Unwrap tags the error as fault.KindConfig.
func (e *MissingEnvError) Unwrap() error {
	return &fault.Error{Kind: fault.KindConfig, Msg: "missing " + e.Name}
}
