package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SubmitImageMessage]        = (*SubmitImageCommand)(nil)
	_ gocmd.Commander[SelectTierMessage]         = (*SelectTierCommand)(nil)
	_ gocmd.Commander[SubmitPaymentProofMessage] = (*SubmitPaymentProofCommand)(nil)
	_ gocmd.Commander[SubmitEmailMessage]        = (*SubmitEmailCommand)(nil)
	_ gocmd.Commander[SkipEmailMessage]          = (*SkipEmailCommand)(nil)
	_ gocmd.Commander[CancelOrderMessage]        = (*CancelOrderCommand)(nil)
	_ gocmd.Commander[ContactRequestMessage]     = (*ContactRequestCommand)(nil)
	_ gocmd.Commander[OperatorActionMessage]     = (*OperatorActionCommand)(nil)
	_ gocmd.Commander[DeliverArtifactMessage]    = (*DeliverArtifactCommand)(nil)
)
