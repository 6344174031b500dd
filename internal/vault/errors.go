package vault

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Erreurs du service du coffre. Unauthorized et Validation sont rejetées
// avant tout appel amont; Upstream ne laisse jamais fuiter de plaintext
// partiel ni la valeur tentée dans son message.
var (
	ErrUnauthorized = errors.New("accès non autorisé")
	ErrValidation   = errors.New("données invalides")
	ErrNotFound     = errors.New("identifiant non trouvé")
	ErrUpstream     = errors.New("service amont indisponible")
)

// validationError enveloppe les erreurs de champ accumulées dans ErrValidation
func validationError(errs *multierror.Error) error {
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return nil
}

// upstreamError enveloppe une défaillance amont. La cause détaillée est
// journalisée côté serveur; l'appelant ne voit que l'erreur générique.
func upstreamError(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
