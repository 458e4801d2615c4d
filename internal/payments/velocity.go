package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// VelocityChecker caps how often one booking may open checkouts or upload
// e-transfer screenshots. Counters live in redis and expire with the window.
type VelocityChecker struct {
	redis  *redis.Client
	logger *logging.Logger
	config VelocityConfig
}

// VelocityConfig contains velocity check configuration.
type VelocityConfig struct {
	// Max hosted checkouts or PayPal orders per booking per window
	MaxCheckoutsPerBooking int
	CheckoutWindowHours    int

	// Max screenshot uploads per booking per window
	MaxUploadsPerBooking int
	UploadWindowHours    int

	EnableCheckoutCheck bool
	EnableUploadCheck   bool
}

// DefaultVelocityConfig returns default velocity limits.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		MaxCheckoutsPerBooking: 10,
		CheckoutWindowHours:    1,
		MaxUploadsPerBooking:   5,
		UploadWindowHours:      24,
		EnableCheckoutCheck:    true,
		EnableUploadCheck:      true,
	}
}

// VelocityResult contains the result of a velocity check.
type VelocityResult struct {
	Allowed      bool
	CheckType    string
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
	Message      string
}

// NewVelocityChecker creates a new velocity checker.
func NewVelocityChecker(redisClient *redis.Client, config VelocityConfig, logger *logging.Logger) *VelocityChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &VelocityChecker{
		redis:  redisClient,
		logger: logger,
		config: config,
	}
}

// CheckCheckoutVelocity counts one checkout attempt for bookingID.
func (v *VelocityChecker) CheckCheckoutVelocity(ctx context.Context, bookingID string) (*VelocityResult, error) {
	return v.check(ctx, "checkout", bookingID, v.config.EnableCheckoutCheck,
		v.config.MaxCheckoutsPerBooking, time.Duration(v.config.CheckoutWindowHours)*time.Hour)
}

// CheckUploadVelocity counts one screenshot upload for bookingID.
func (v *VelocityChecker) CheckUploadVelocity(ctx context.Context, bookingID string) (*VelocityResult, error) {
	return v.check(ctx, "upload", bookingID, v.config.EnableUploadCheck,
		v.config.MaxUploadsPerBooking, time.Duration(v.config.UploadWindowHours)*time.Hour)
}

func (v *VelocityChecker) check(ctx context.Context, kind, bookingID string, enabled bool, max int, window time.Duration) (*VelocityResult, error) {
	ctx, span := paymentsTracer.Start(ctx, "velocity.check_"+kind)
	defer span.End()
	span.SetAttributes(
		attribute.String("bridal.booking_id", bookingID),
		attribute.String("velocity.check_type", kind),
	)

	if v == nil || v.redis == nil || !enabled {
		return &VelocityResult{Allowed: true, CheckType: kind}, nil
	}

	key := velocityKey(kind, bookingID)
	count, expiry, err := v.incrementAndGet(ctx, key, window)
	if err != nil {
		v.logger.Error("velocity check failed", "error", err, "key", key)
		// Fail open - allow the payment if Redis is down
		return &VelocityResult{Allowed: true, CheckType: kind, Message: "velocity check unavailable"}, nil
	}

	result := &VelocityResult{
		Allowed:      count <= max,
		CheckType:    kind,
		CurrentCount: count,
		MaxAllowed:   max,
		WindowExpiry: expiry,
	}
	if !result.Allowed {
		result.Message = fmt.Sprintf("exceeded %d %s attempts in %s", max, kind, window)
		v.logger.Warn(kind+" velocity exceeded", "booking_id", bookingID, "count", count, "max", max)
		span.SetAttributes(attribute.Bool("velocity.exceeded", true))
	}
	return result, nil
}

// incrementAndGet increments a counter and returns the new value with expiry time.
func (v *VelocityChecker) incrementAndGet(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	// Set expiry only on first increment
	if count == 1 {
		v.redis.Expire(ctx, key, window)
	}
	ttl, err := v.redis.TTL(ctx, key).Result()
	if err != nil {
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}

// ResetCheckoutVelocity clears the checkout counter for a booking (admin use).
func (v *VelocityChecker) ResetCheckoutVelocity(ctx context.Context, bookingID string) error {
	return v.redis.Del(ctx, velocityKey("checkout", bookingID)).Err()
}

// GetCheckoutStats reports the checkout counter without incrementing it.
func (v *VelocityChecker) GetCheckoutStats(ctx context.Context, bookingID string) (*VelocityResult, error) {
	key := velocityKey("checkout", bookingID)
	count, err := v.redis.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return &VelocityResult{
			Allowed:    true,
			CheckType:  "checkout",
			MaxAllowed: v.config.MaxCheckoutsPerBooking,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	ttl, _ := v.redis.TTL(ctx, key).Result()
	return &VelocityResult{
		Allowed:      count < v.config.MaxCheckoutsPerBooking,
		CheckType:    "checkout",
		CurrentCount: count,
		MaxAllowed:   v.config.MaxCheckoutsPerBooking,
		WindowExpiry: time.Now().Add(ttl),
	}, nil
}

func velocityKey(kind, bookingID string) string {
	return fmt.Sprintf("velocity:%s:%s", kind, bookingID)
}
