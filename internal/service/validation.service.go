package service

import (
	"errors"
	"math"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var RoomIdRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9_-]{6,16}$")),
}

var UserIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

var DisplayNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 32),
}

var AvatarRefRule = []validation.Rule{
	is.URL,
}

var TitleRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 100),
}

var JoinCodeRule = []validation.Rule{
	validation.Length(4, 12),
	is.Alphanumeric,
}

var MessageTextRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 1000),
}

var PlayerActionRule = []validation.Rule{
	validation.Required,
	validation.In(string(ActionPlay), string(ActionPause), string(ActionSeek)),
}

var PlayerTimeRule = []validation.Rule{
	validation.By(isFiniteTime),
}

func isFiniteTime(value any) error {
	t, ok := value.(float64)
	if !ok {
		return errors.New("must be a number")
	}

	if math.IsNaN(t) || math.IsInf(t, 0) {
		return errors.New("must be a finite number")
	}

	if t < 0 {
		return errors.New("must be no less than 0")
	}

	return nil
}
