package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"amari/internal/engineerr"
)

var factories = map[string]func() Operation{
	NameCreateMultivector: func() Operation { return &CreateMultivector{} },
	NameGeometricProduct:  func() Operation { return &GeometricProduct{} },
	NameRotorRotation:     func() Operation { return &RotorRotation{} },
	NameGradeProjection:   func() Operation { return &GradeProjection{} },
	NameTropicalMultiply:  func() Operation { return &TropicalMultiply{} },
	NameTropicalAdd:       func() Operation { return &TropicalAdd{} },
	NameTropicalPower:     func() Operation { return &TropicalPower{} },
	NameShortestPath:      func() Operation { return &ShortestPath{} },
	NameComputeGradient:   func() Operation { return &ComputeGradient{} },
	NameEvolveAutomaton:   func() Operation { return &EvolveAutomaton{} },
	NameFisherInformation: func() Operation { return &FisherInformation{} },
	NameCayleyTable:       func() Operation { return &CayleyTable{} },
	NameListCayleyTables:  func() Operation { return &ListCayleyTables{} },
	NameClearCayleyCache:  func() Operation { return &ClearCayleyCache{} },
	NameSaveComputation:   func() Operation { return &SaveComputation{} },
	NameLoadComputation:   func() Operation { return &LoadComputation{} },
	NameListComputations:  func() Operation { return &ListComputations{} },
	NameDeleteComputation: func() Operation { return &DeleteComputation{} },
	NameBatchApply:        func() Operation { return &BatchApply{} },
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Operations lists every operation name Decode accepts.
func Operations() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode parses raw parameters for the named operation. Schema violations
// are reported as shape errors; an unknown name is the only way to get
// ErrUnknownOperation.
func Decode(name string, raw json.RawMessage) (Operation, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, unknownOperation(name)
	}
	op := factory()

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(op); err != nil {
		if errors.Is(err, engineerr.ErrShape) {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, engineerr.Shapef("%s: %v", name, err)
	}
	if dec.More() {
		return nil, engineerr.Shapef("%s: trailing data after parameters", name)
	}

	if err := validate.Struct(op); err != nil {
		return nil, validationError(name, err)
	}
	return op, nil
}

func validationError(name string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return engineerr.Shapef("%s: %v", name, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return engineerr.Shapef("%s: %s", name, strings.Join(msgs, "; "))
}
