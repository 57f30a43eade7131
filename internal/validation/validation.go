package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zfogg/unify/internal/logger"
	"go.uber.org/zap"
)

// Known optional services. Each can be made mandatory with
// UNIFY_REQUIRE_<NAME>=true.
const (
	ServiceRedis         = "redis"
	ServiceElasticsearch = "elasticsearch"
	ServiceS3            = "s3"
	ServiceSES           = "ses"
)

var knownServices = []string{ServiceRedis, ServiceElasticsearch, ServiceS3, ServiceSES}

// Check probes one service
type Check func(ctx context.Context) error

// ServiceValidator fails startup when a required optional service is missing
// or unhealthy. Services that are not required are never probed here.
type ServiceValidator struct {
	required []string
	checks   map[string]Check
	timeout  time.Duration
}

// NewServiceValidator reads the required set from the environment
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		required: parseRequiredServices(os.Getenv),
		checks:   make(map[string]Check),
		timeout:  10 * time.Second,
	}
}

// Register records how to probe a configured service
func (sv *ServiceValidator) Register(name string, check Check) *ServiceValidator {
	sv.checks[name] = check
	return sv
}

// Require marks services as mandatory in addition to the environment
func (sv *ServiceValidator) Require(names ...string) *ServiceValidator {
	for _, n := range names {
		if !sv.isRequired(n) {
			sv.required = append(sv.required, n)
		}
	}
	return sv
}

func (sv *ServiceValidator) isRequired(name string) bool {
	for _, r := range sv.required {
		if r == name {
			return true
		}
	}
	return false
}

// ValidateServices probes every required service in order and returns the
// first failure. A required service without a registered check was never
// configured, which is also a failure.
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}
	logger.Log.Info("Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		check, ok := sv.checks[name]
		if !ok {
			err := fmt.Errorf("required service %q is not configured", name)
			logger.ErrorWithFields("Service validation failed", err, zap.String("service", name))
			return err
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.ErrorWithFields("Service validation failed", err, zap.String("service", name))
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}
		logger.Log.Info("Service validated", zap.String("service", name))
	}
	return nil
}

// parseRequiredServices reads UNIFY_REQUIRE_* flags
func parseRequiredServices(getenv func(string) string) []string {
	var required []string
	for _, service := range knownServices {
		if isTruthy(getenv("UNIFY_REQUIRE_" + strings.ToUpper(service))) {
			required = append(required, service)
		}
	}
	return required
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
