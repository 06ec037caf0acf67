package loganalytics

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"forwarder/internal/errors"
)

// NewDefaultCredential resolves the ambient Azure credential chain:
// environment variables, workload or managed identity, then local
// developer credentials (Azure CLI, azd).
func NewDefaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errors.Credential(err)
	}
	return cred, nil
}
