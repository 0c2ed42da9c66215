package ga

import (
	"math"

	"amari/internal/engineerr"
)

const axisEpsilon = 1e-12

// Rotor builds R = cos(angle/2) - sin(angle/2) B for the unit bivector along
// plane. Applied as R v ~R it rotates by angle inside the plane.
func Rotor(plane Multivector, angle float64) (Multivector, error) {
	sig := plane.Signature()
	if !sig.IsEuclidean() {
		return Multivector{}, engineerr.Domainf("rotors need a Euclidean signature, got %s", sig)
	}
	b := plane.Grade(2)
	norm := b.Magnitude()
	if norm < axisEpsilon {
		return Multivector{}, engineerr.Domainf("rotation plane is zero")
	}
	half := angle / 2
	r := b.Scale(-math.Sin(half) / norm)
	return r.WithScalar(math.Cos(half)), nil
}

// Apply computes R v ~R.
func Apply(rotor, v Multivector) (Multivector, error) {
	return Product(rotor, v, rotor.Reverse())
}

// AxisPlane returns the bivector dual to a 3-D axis:
// ax e23 - ay e13 + az e12, so that rotations follow the right-hand rule.
func AxisPlane(axis []float64, sig Signature) (Multivector, error) {
	if sig.Dim() != 3 {
		return Multivector{}, engineerr.Shapef("axis rotation needs 3 generators, signature %s has %d", sig, sig.Dim())
	}
	if len(axis) != 3 {
		return Multivector{}, engineerr.Shapef("axis needs 3 components, got %d", len(axis))
	}
	if !sig.IsEuclidean() {
		return Multivector{}, engineerr.Domainf("rotors need a Euclidean signature, got %s", sig)
	}
	if math.Sqrt(axis[0]*axis[0]+axis[1]*axis[1]+axis[2]*axis[2]) < axisEpsilon {
		return Multivector{}, engineerr.Domainf("rotation axis is the zero vector")
	}
	plane := Zero(sig)
	plane.coeffs[0b110] = axis[0]
	plane.coeffs[0b101] = -axis[1]
	plane.coeffs[0b011] = axis[2]
	return plane, nil
}

// Rotate turns a 3-D vector about axis by angle radians.
func Rotate(vector, axis []float64, angle float64, sig Signature) ([]float64, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	plane, err := AxisPlane(axis, sig)
	if err != nil {
		return nil, err
	}
	v, err := FromVector(vector, sig)
	if err != nil {
		return nil, err
	}
	return rotateWith(plane, v, angle)
}

// RotateInPlane turns a vector by angle inside an arbitrary bivector plane
// of a Euclidean algebra of any dimension.
func RotateInPlane(vector []float64, plane Multivector, angle float64) ([]float64, error) {
	v, err := FromVector(vector, plane.Signature())
	if err != nil {
		return nil, err
	}
	return rotateWith(plane, v, angle)
}

func rotateWith(plane, v Multivector, angle float64) ([]float64, error) {
	r, err := Rotor(plane, angle)
	if err != nil {
		return nil, err
	}
	rotated, err := Apply(r, v)
	if err != nil {
		return nil, err
	}
	return rotated.Vector(), nil
}
