// Package dlp provides a Cloud DLP masker.
package dlp

import (
	"context"
	"fmt"
	"sync"

	dlp "cloud.google.com/go/dlp/apiv2"
	"cloud.google.com/go/dlp/apiv2/dlppb"
	"golang.org/x/time/rate"

	"speech-analytics-pipeline/internal/retry"
	"speech-analytics-pipeline/internal/service/gcp"
)

// Config holds the de-identification settings.
type Config struct {
	ProjectID    string
	LanguageCode string
	Mask         string
	RatePerSec   float64
}

// Masker implements redact.Redactable with DeidentifyContent. Findings of
// every INSPECT-capable info type are replaced with the mask.
type Masker struct {
	handle  *gcp.Handle[*dlp.Client]
	cfg     Config
	policy  retry.Policy
	limiter *rate.Limiter

	mu        sync.Mutex
	infoTypes []*dlppb.InfoType
}

// New creates a DLP masker. The client is dialed on first use.
func New(cfg Config, clientCfg gcp.ClientConfig, policy retry.Policy) *Masker {
	opts := clientCfg.Options()
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Masker{
		handle: gcp.NewHandle(
			func(ctx context.Context) (*dlp.Client, error) {
				return dlp.NewClient(ctx, opts...)
			},
			func(c *dlp.Client) error { return c.Close() },
		),
		cfg:     cfg,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// MaskText de-identifies text. Empty text is returned without a call.
func (m *Masker) MaskText(ctx context.Context, text string) (string, error) {
	if text == "" {
		return text, nil
	}

	client, err := m.handle.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("dlp client: %w", err)
	}
	infoTypes, err := m.InfoTypes(ctx)
	if err != nil {
		return "", err
	}

	req := DeidentifyRequest(m.cfg.ProjectID, m.cfg.Mask, infoTypes, text)
	var resp *dlppb.DeidentifyContentResponse
	err = retry.Do(ctx, m.policy, func(ctx context.Context) error {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = client.DeidentifyContent(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("deidentify content: %w", err)
	}
	return resp.GetItem().GetValue(), nil
}

// InfoTypes lists the info types usable for inspection. A successful listing
// is cached for the life of the masker.
func (m *Masker) InfoTypes(ctx context.Context) ([]*dlppb.InfoType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.infoTypes != nil {
		return m.infoTypes, nil
	}

	client, err := m.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("dlp client: %w", err)
	}

	var resp *dlppb.ListInfoTypesResponse
	err = retry.Do(ctx, m.policy, func(ctx context.Context) error {
		var err error
		resp, err = client.ListInfoTypes(ctx, &dlppb.ListInfoTypesRequest{LanguageCode: m.cfg.LanguageCode})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list info types: %w", err)
	}

	m.infoTypes = InspectInfoTypes(resp)
	return m.infoTypes, nil
}

// Close releases the underlying client.
func (m *Masker) Close() error {
	return m.handle.Close()
}

// InspectInfoTypes keeps the info types supported by INSPECT.
func InspectInfoTypes(resp *dlppb.ListInfoTypesResponse) []*dlppb.InfoType {
	out := make([]*dlppb.InfoType, 0, len(resp.GetInfoTypes()))
	for _, desc := range resp.GetInfoTypes() {
		for _, s := range desc.GetSupportedBy() {
			if s == dlppb.InfoTypeSupportedBy_INSPECT {
				out = append(out, &dlppb.InfoType{Name: desc.GetName()})
				break
			}
		}
	}
	return out
}

// DeidentifyRequest replaces every finding of infoTypes in text with mask.
func DeidentifyRequest(projectID, mask string, infoTypes []*dlppb.InfoType, text string) *dlppb.DeidentifyContentRequest {
	return &dlppb.DeidentifyContentRequest{
		Parent:        fmt.Sprintf("projects/%s/locations/global", projectID),
		InspectConfig: &dlppb.InspectConfig{InfoTypes: infoTypes},
		DeidentifyConfig: &dlppb.DeidentifyConfig{
			Transformation: &dlppb.DeidentifyConfig_InfoTypeTransformations{
				InfoTypeTransformations: &dlppb.InfoTypeTransformations{
					Transformations: []*dlppb.InfoTypeTransformations_InfoTypeTransformation{{
						PrimitiveTransformation: &dlppb.PrimitiveTransformation{
							Transformation: &dlppb.PrimitiveTransformation_ReplaceConfig{
								ReplaceConfig: &dlppb.ReplaceValueConfig{
									NewValue: &dlppb.Value{Type: &dlppb.Value_StringValue{StringValue: mask}},
								},
							},
						},
					}},
				},
			},
		},
		Item: &dlppb.ContentItem{DataItem: &dlppb.ContentItem_Value{Value: text}},
	}
}
