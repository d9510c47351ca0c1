package orderflow

import "github.com/goliatone/go-orderflow/core"

type Config = core.Config

type TierOption = core.TierOption

type DispatchConfig = core.DispatchConfig

type Option = core.Option

type Service = core.Service

type Order = core.Order
type State = core.State
type StatusInfo = core.StatusInfo
type Result = core.Result
type Notification = core.Notification

type Registry = core.Registry
type NotificationOutbox = core.NotificationOutbox
type NotificationDeliverer = core.NotificationDeliverer
type DispatchLedger = core.DispatchLedger
type Mailer = core.Mailer

type SubmitImage = core.SubmitImage
type SelectTier = core.SelectTier
type SubmitPaymentProof = core.SubmitPaymentProof
type SubmitEmail = core.SubmitEmail
type SkipEmail = core.SkipEmail
type CustomerCancel = core.CustomerCancel
type ContactRequest = core.ContactRequest
type OperatorAction = core.OperatorAction
type DeliverArtifact = core.DeliverArtifact

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithRegistry           = core.WithRegistry
	WithNotificationOutbox = core.WithNotificationOutbox
	WithNotificationLedger = core.WithNotificationLedger
	WithMailer             = core.WithMailer
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithClock              = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func New(cfg Config, opts ...Option) (*Service, error) {
	return core.New(cfg, opts...)
}
