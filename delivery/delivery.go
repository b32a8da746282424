package delivery

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jsonmapper/integration-mapper/types"
)

const DefaultTimeout = 30 * time.Second

// Result describes one delivery attempt. Request never carries the
// Authorization header.
type Result struct {
	Request    map[string]any
	Response   map[string]any
	StatusCode int
	OK         bool
	Message    string
	Duration   time.Duration
}

type IDeliveryClient interface {
	Deliver(ctx context.Context, target types.Target, output map[string]any) (*Result, error)
}

// DispatchClient routes a delivery to the HTTP or email client based on
// the target type.
type DispatchClient struct {
	HTTPClient  IDeliveryClient
	EmailClient IDeliveryClient
	Logger      *logrus.Logger
}

func NewDispatchClient(httpClient IDeliveryClient, emailClient IDeliveryClient, logger *logrus.Logger) *DispatchClient {
	return &DispatchClient{
		HTTPClient:  httpClient,
		EmailClient: emailClient,
		Logger:      logger,
	}
}

func (dispatchClient *DispatchClient) Deliver(ctx context.Context, target types.Target, output map[string]any) (*Result, error) {
	switch target.Type {
	case types.TargetTypeHTTP, "":
		dispatchClient.Logger.Debugf("Delivering over HTTP to %s", target.URL)
		return dispatchClient.HTTPClient.Deliver(ctx, target, output)
	case types.TargetTypeEmail:
		dispatchClient.Logger.Debugf("Delivering by email to %s", target.EmailConfig.ToEmail)
		return dispatchClient.EmailClient.Deliver(ctx, target, output)
	default:
		return nil, errors.Errorf("unsupported target type %q", target.Type)
	}
}
