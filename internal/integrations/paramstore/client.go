// Package paramstore reads secrets from AWS SSM Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrNotFound is returned when the named parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter returns the decrypted value of a named parameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Parameter is one decrypted SSM value plus the metadata worth logging.
type Parameter struct {
	Name    string
	Value   string
	Type    types.ParameterType
	Version int64
}

// Secure reports whether the value was stored encrypted.
func (p Parameter) Secure() bool {
	return p.Type == types.ParameterTypeSecureString
}

type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Lookup fetches name with decryption on. A missing parameter yields an error
// matching ErrNotFound.
func (c *Client) Lookup(ctx context.Context, name string) (Parameter, error) {
	if c == nil || c.api == nil {
		return Parameter{}, errors.New("paramstore: client not initialized")
	}
	if name = strings.TrimSpace(name); name == "" {
		return Parameter{}, errors.New("paramstore: name is required")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return Parameter{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return Parameter{}, fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return Parameter{}, fmt.Errorf("paramstore: parameter %q missing value", name)
	}
	return Parameter{
		Name:    name,
		Value:   aws.ToString(out.Parameter.Value),
		Type:    out.Parameter.Type,
		Version: out.Parameter.Version,
	}, nil
}

// GetParameter satisfies Getter.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	p, err := c.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return p.Value, nil
}
