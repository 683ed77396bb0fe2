package log

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому намеренно НЕ используют t.Parallel().

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFrom_ReturnsDefault_WhenNoLoggerInContext —
// если логгер не положен в контекст, From возвращает текущий slog.Default().
func TestFrom_ReturnsDefault_WhenNoLoggerInContext(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))
}

// TestIntoAndFrom_RoundTrip —
// Into кладёт логгер в контекст, From извлекает его 1:1.
func TestIntoAndFrom_RoundTrip(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	l := newSilent()
	ctx := Into(context.Background(), l)

	require.Equal(t, l, From(ctx))
	require.Equal(t, def, From(context.Background()))
}

// TestFrom_ReturnsDefault_WhenStoredLoggerIsNil —
// From устойчив к *slog.Logger(nil) по нашему ключу.
func TestFrom_ReturnsDefault_WhenStoredLoggerIsNil(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	var nilLogger *slog.Logger
	ctx := Into(context.Background(), nilLogger)

	require.Equal(t, def, From(ctx))
}

// TestInto_ChildOverridesParent —
// дочерний контекст перекрывает логгер, не трогая родительский.
func TestInto_ChildOverridesParent(t *testing.T) {
	parentLogger := newSilent()
	childLogger := newSilent()

	parent := Into(context.Background(), parentLogger)
	child := Into(parent, childLogger)

	require.Equal(t, childLogger, From(child))
	require.Equal(t, parentLogger, From(parent))
}
