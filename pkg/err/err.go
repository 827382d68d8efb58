package errprocess

import (
	"errors"
	"fmt"

	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
)

// Set logs errMsg and returns it as an error.
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap logs msg with its cause and returns the wrapped error, keeping
// the cause reachable through errors.Is / errors.As.
func Wrap(msg string, cause error) error {
	err := fmt.Errorf("%s : %w", msg, cause)
	logger.Log.Error(err.Error())
	return err
}
