package envelope

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/adapter/docusign"
	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/repository"
	"github.com/paperpath/docusign-connect/internal/storage"
)

// defaultSubject is the email subject template; :document is replaced with
// the original filename.
const defaultSubject = "Please sign :document"

// SignerInput describes one signing recipient with its 1-based routing
// order.
type SignerInput struct {
	Name  string
	Email string
	Order int
}

// CarbonCopyInput describes the carbon-copy recipient. Its routing order
// is always assigned as max(signer order) + 1.
type CarbonCopyInput struct {
	Name  string
	Email string
}

// PrepareInput collects everything needed to create a local envelope.
type PrepareInput struct {
	// Document is the filename of a document already present in storage,
	// e.g. "contract.pdf".
	Document string
	// Dir is the storage directory holding the document.
	Dir string
	// Subject overrides the default subject template.
	Subject string
	Signers []SignerInput
	CC      *CarbonCopyInput
}

// Service prepares envelopes locally and transmits them to the provider.
type Service struct {
	envelopes  repository.EnvelopeRepository
	recipients repository.RecipientRepository
	documents  storage.DocumentStore
	signing    docusign.SigningClient
	node       *snowflake.Node
	logger     *zap.Logger
}

// NewService wires the envelope service.
func NewService(
	envelopes repository.EnvelopeRepository,
	recipients repository.RecipientRepository,
	documents storage.DocumentStore,
	signing docusign.SigningClient,
	node *snowflake.Node,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{
		envelopes:  envelopes,
		recipients: recipients,
		documents:  documents,
		signing:    signing,
		node:       node,
		logger:     logger,
	}
}

// Prepare validates the input, creates the envelope in created status, and
// creates all recipients together with the CC slotted after the last
// signer. Absent document, signers, or CC is a caller bug, not a
// transient condition.
func (s *Service) Prepare(ctx context.Context, in PrepareInput) (domain.Envelope, []domain.Recipient, error) {
	if strings.TrimSpace(in.Document) == "" {
		return domain.Envelope{}, nil, &domain.MissingDataError{Field: "document"}
	}
	if len(in.Signers) == 0 {
		return domain.Envelope{}, nil, &domain.MissingDataError{Field: "recipients"}
	}
	if in.CC == nil {
		return domain.Envelope{}, nil, &domain.MissingDataError{Field: "cc recipient"}
	}

	dir := strings.Trim(in.Dir, "/")
	if dir == "" {
		dir = "envelopes"
	}
	name, extension := splitFilename(in.Document)
	if extension == "" {
		return domain.Envelope{}, nil, &domain.MissingDataError{Field: "document extension"}
	}

	envelope := domain.Envelope{
		ID:               s.node.Generate().Int64(),
		OriginalFilename: in.Document,
		Extension:        extension,
		Path:             dir,
		Name:             name,
		Status:           domain.EnvelopeCreated,
	}

	exists, err := s.documents.Exists(ctx, envelope.DocumentPath())
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	if !exists {
		return domain.Envelope{}, nil, &domain.MissingDataError{Field: "document at " + envelope.DocumentPath()}
	}

	subject := in.Subject
	if subject == "" {
		subject = defaultSubject
	}
	envelope.Subject = strings.ReplaceAll(subject, ":document", envelope.OriginalFilename)

	created, err := s.envelopes.Create(ctx, envelope)
	if err != nil {
		return domain.Envelope{}, nil, err
	}

	recipients := make([]domain.Recipient, 0, len(in.Signers)+1)
	maxOrder := 0
	for _, signer := range in.Signers {
		if signer.Order > maxOrder {
			maxOrder = signer.Order
		}
		recipients = append(recipients, domain.Recipient{
			ID:         s.node.Generate().Int64(),
			EnvelopeID: created.ID,
			Name:       signer.Name,
			Email:      signer.Email,
			Order:      signer.Order,
		})
	}
	recipients = append(recipients, domain.Recipient{
		ID:         s.node.Generate().Int64(),
		EnvelopeID: created.ID,
		Name:       in.CC.Name,
		Email:      in.CC.Email,
		Order:      maxOrder + 1,
		IsCC:       true,
	})

	saved, err := s.recipients.CreateAll(ctx, recipients)
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	return created, saved, nil
}

// Send transmits the envelope to the provider using the session's account
// and access token, then records the provider envelope id and the sent
// status. Recipient ids sent to the provider equal the local routing
// order; the webhook side depends on that numbering.
func (s *Service) Send(ctx context.Context, envelopeID int64, sess *domain.Session) (domain.Envelope, error) {
	envelope, err := s.envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return domain.Envelope{}, err
	}
	if !envelope.Status.CanTransition(domain.EnvelopeSent) || envelope.Status == domain.EnvelopeSent {
		return domain.Envelope{}, &domain.InvalidTransitionError{
			Entity: "envelope",
			From:   string(envelope.Status),
			To:     string(domain.EnvelopeSent),
		}
	}

	recipients, err := s.recipients.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return domain.Envelope{}, err
	}

	def, err := s.makeDefinition(ctx, envelope, recipients)
	if err != nil {
		return domain.Envelope{}, err
	}

	providerID, err := s.signing.CreateEnvelope(ctx, sess.BasePath, sess.AccountID, sess.AccessToken, def)
	if err != nil {
		return domain.Envelope{}, err
	}

	if err := s.envelopes.MarkSent(ctx, envelope.ID, providerID); err != nil {
		return domain.Envelope{}, err
	}
	envelope.EnvelopeID = providerID
	envelope.Status = domain.EnvelopeSent

	s.logger.Info("envelope sent",
		zap.Int64("id", envelope.ID),
		zap.String("envelope_id", providerID))
	return envelope, nil
}

func (s *Service) makeDefinition(ctx context.Context, envelope domain.Envelope, recipients []domain.Recipient) (docusign.EnvelopeDefinition, error) {
	data, err := s.documents.Get(ctx, envelope.DocumentPath())
	if err != nil {
		return docusign.EnvelopeDefinition{}, err
	}

	signHere := docusign.DefaultSignHere()
	var signers []docusign.Signer
	var carbonCopies []docusign.CarbonCopy
	for _, recipient := range recipients {
		if recipient.IsCC {
			carbonCopies = append(carbonCopies, docusign.CarbonCopy{
				Email:        recipient.Email,
				Name:         recipient.Name,
				RecipientID:  strconv.Itoa(recipient.Order),
				RoutingOrder: strconv.Itoa(recipient.Order),
			})
			continue
		}
		signers = append(signers, docusign.Signer{
			Email:        recipient.Email,
			Name:         recipient.Name,
			RecipientID:  strconv.Itoa(recipient.Order),
			RoutingOrder: strconv.Itoa(recipient.Order),
			Tabs:         &docusign.Tabs{SignHereTabs: []docusign.SignHere{signHere}},
		})
	}
	if len(signers) == 0 {
		return docusign.EnvelopeDefinition{}, &domain.MissingDataError{Field: "recipients"}
	}

	return docusign.EnvelopeDefinition{
		EmailSubject: envelope.Subject,
		Documents: []docusign.Document{{
			DocumentBase64: base64.StdEncoding.EncodeToString(data),
			Name:           envelope.OriginalFilename,
			FileExtension:  envelope.Extension,
			DocumentID:     "1",
		}},
		Recipients: docusign.Recipients{
			Signers:      signers,
			CarbonCopies: carbonCopies,
		},
		Status: string(domain.EnvelopeSent),
	}, nil
}

func splitFilename(filename string) (name, extension string) {
	idx := strings.LastIndex(filename, ".")
	if idx <= 0 || idx == len(filename)-1 {
		return filename, ""
	}
	return filename[:idx], filename[idx+1:]
}
