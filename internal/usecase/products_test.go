package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProductService_ValidatesDependency(t *testing.T) {
	_, err := NewProductService(nil)
	require.Error(t, err)
}

func TestProductService(t *testing.T) {
	svc, err := NewProductService(defaultCatalog(t))
	require.NoError(t, err)

	require.Len(t, svc.List(), 5)

	p, err := svc.Get("fr002")
	require.NoError(t, err)
	require.Equal(t, "Mini Fridge Elite", p.Name)

	_, err = svc.Get("missing")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorNotFound, ucErr.Code)

	require.Len(t, svc.Search(""), 5)
	require.Len(t, svc.Search("oven"), 1)
}
