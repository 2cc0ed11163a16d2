package tenant

import engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"

func errInvalidConfig(reason string) error {
	return engineerrors.InvalidArgument(reason)
}
