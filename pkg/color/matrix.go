package color

// Matrix3 is a row-major 3x3 matrix
type Matrix3 [9]float64

// Identity3 returns the identity matrix
func Identity3() Matrix3 {
	return Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// At returns the element at row r, column c
func (m Matrix3) At(r, c int) float64 { return m[r*3+c] }

// MulVec returns m * v
func (m Matrix3) MulVec(v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Mul returns m * o
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = m[i*3]*o[j] + m[i*3+1]*o[3+j] + m[i*3+2]*o[6+j]
		}
	}
	return r
}

// Determinant returns det(m)
func (m Matrix3) Determinant() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Inverse returns the inverse of m and false if m is singular
func (m Matrix3) Inverse() (Matrix3, bool) {
	det := m.Determinant()
	if det == 0 {
		return Matrix3{}, false
	}
	k := 1.0 / det
	return Matrix3{
		k * (m[4]*m[8] - m[5]*m[7]),
		k * (m[2]*m[7] - m[1]*m[8]),
		k * (m[1]*m[5] - m[2]*m[4]),
		k * (m[5]*m[6] - m[3]*m[8]),
		k * (m[0]*m[8] - m[2]*m[6]),
		k * (m[2]*m[3] - m[0]*m[5]),
		k * (m[3]*m[7] - m[4]*m[6]),
		k * (m[1]*m[6] - m[0]*m[7]),
		k * (m[0]*m[4] - m[1]*m[3]),
	}, true
}

// Translate2 returns the homogeneous 2D translation by (tx, ty)
func Translate2(tx, ty float64) Matrix3 {
	return Matrix3{1, 0, tx, 0, 1, ty, 0, 0, 1}
}

// Scale2 returns the homogeneous 2D scale by (sx, sy)
func Scale2(sx, sy float64) Matrix3 {
	return Matrix3{sx, 0, 0, 0, sy, 0, 0, 0, 1}
}

// Apply2 transforms the 2D point p in homogeneous coordinates
func (m Matrix3) Apply2(p Vec2) Vec2 {
	r := m.MulVec([3]float64{p[0], p[1], 1})
	return Vec2{r[0], r[1]}
}
