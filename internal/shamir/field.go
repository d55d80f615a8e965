package shamir

// Arithmetic in GF(2^8) reduced by x^8 + x^4 + x^3 + x + 1 (0x11b), the AES
// field.  Multiplication and division go through log/exp tables built from
// the generator 0x03.

const fieldPolynomial = 0x11b

var (
	expTable [510]byte
	logTable [256]byte
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		logTable[x] = byte(i)

		// x *= 3, i.e. x ^ (x << 1) reduced by the field polynomial.
		x ^= x << 1
		if x&0x100 != 0 {
			x ^= fieldPolynomial
		}
	}
	for i := 255; i < len(expTable); i++ {
		expTable[i] = expTable[i-255]
	}
}

// add is addition (and subtraction) in GF(256).
func add(a, b byte) byte {
	return a ^ b
}

func mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

// div panics on division by zero; callers guarantee distinct coordinates.
func div(a, b byte) byte {
	if b == 0 {
		panic("shamir: division by zero")
	}
	if a == 0 {
		return 0
	}
	return expTable[int(logTable[a])+255-int(logTable[b])]
}

// evaluate returns the polynomial with the given coefficients (constant term
// first) evaluated at x using Horner's method.
func evaluate(coeffs []byte, x byte) byte {
	out := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		out = add(mul(out, x), coeffs[i])
	}
	return out
}

// interpolateAtZero returns f(0) for the unique polynomial of degree
// len(xs)-1 through the points (xs[i], ys[i]).
func interpolateAtZero(xs, ys []byte) byte {
	var result byte
	for i := range xs {
		basis := byte(1)
		for j := range xs {
			if i == j {
				continue
			}
			// (0 - x_j) / (x_i - x_j) with subtraction being xor.
			basis = mul(basis, div(xs[j], add(xs[i], xs[j])))
		}
		result = add(result, mul(ys[i], basis))
	}
	return result
}
