package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smsgate/internal/delivery"
	"smsgate/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func useConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	previous := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = previous })
}

func TestRunWithInvalidConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TARGET_PHONE_NUMBER", "")
	useConfigFile(t, `{}`)

	err := run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunWithUnparseableConfig(t *testing.T) {
	useConfigFile(t, `{"discord":`)

	err := run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestConfigureLogLevel(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		verbose    bool
		want       logrus.Level
	}{
		{name: "default", configured: "", want: logrus.InfoLevel},
		{name: "warn", configured: "warn", want: logrus.WarnLevel},
		{name: "error", configured: "error", want: logrus.ErrorLevel},
		{name: "debug capped without verbose", configured: "debug", want: logrus.InfoLevel},
		{name: "invalid falls back", configured: "loud", want: logrus.InfoLevel},
		{name: "verbose wins", configured: "error", verbose: true, want: logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := quietLogger()
			configureLogLevel(logger, tt.configured, tt.verbose)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestBuildDelivery(t *testing.T) {
	t.Run("push", func(t *testing.T) {
		cfg := testConfig()
		cfg.SMS.APIBaseURL = "http://127.0.0.1:1"
		cfg.Delivery.MaxAttempts = 3
		cfg.Delivery.Workers = 2

		strategy, push, pull := buildDelivery(cfg, quietLogger())

		assert.Equal(t, models.DeliveryModePush, strategy.Mode())
		assert.NotNil(t, push)
		assert.Nil(t, pull)
	})

	t.Run("pull", func(t *testing.T) {
		cfg := testConfig()
		cfg.Delivery.Mode = models.DeliveryModePull
		cfg.Delivery.QueueCapacity = 1

		strategy, push, pull := buildDelivery(cfg, quietLogger())

		assert.Equal(t, models.DeliveryModePull, strategy.Mode())
		assert.Nil(t, push)
		require.NotNil(t, pull)

		ctx := context.Background()
		require.NoError(t, strategy.Deliver(ctx, models.NewOutboundSMS("+15550000000", "one")))
		assert.Error(t, strategy.Deliver(ctx, models.NewOutboundSMS("+15550000000", "two")))
		assert.Equal(t, 1, pull.Pending())
	})
}

type timeoutSender struct {
	calls int
}

func (s *timeoutSender) Send(ctx context.Context, to, content string) error {
	s.calls++
	return context.DeadlineExceeded
}

func TestGuardSender(t *testing.T) {
	t.Run("off by default", func(t *testing.T) {
		sender := &timeoutSender{}
		got := guardSender(testConfig(), sender, quietLogger())
		assert.Same(t, sender, got)
	})

	t.Run("negative threshold stays off", func(t *testing.T) {
		cfg := testConfig()
		cfg.Delivery.BreakerThreshold = -1
		sender := &timeoutSender{}
		assert.Same(t, sender, guardSender(cfg, sender, quietLogger()))
	})

	t.Run("positive threshold wraps", func(t *testing.T) {
		cfg := testConfig()
		cfg.Delivery.BreakerThreshold = 2
		cfg.Delivery.BreakerCooldownSec = 30
		sender := &timeoutSender{}

		guarded := guardSender(cfg, sender, quietLogger())
		assert.IsType(t, &delivery.GuardedSender{}, guarded)

		for i := 0; i < 4; i++ {
			assert.Error(t, guarded.Send(context.Background(), "+15550000000", "hi"))
		}
		assert.Equal(t, 2, sender.calls)
	})
}

func TestOpenJournal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := openJournal(ctx, "", quietLogger())
	assert.NoError(t, err)
	assert.Nil(t, db)

	db, err = openJournal(ctx, filepath.Join(t.TempDir(), "journal.db"), quietLogger())
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.NoError(t, db.Close())

	_, err = openJournal(ctx, "../escape.db", quietLogger())
	assert.Error(t, err)
}
