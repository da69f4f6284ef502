package value

// Vect3Float32 is a 3-space float vector (Vect3Float).
type Vect3Float32 struct{ X, Y, Z float32 }

// Vect3Int16Val is a 3-space signed 16-bit vector (Vect3Int16).
type Vect3Int16Val struct{ X, Y, Z int16 }

// Vect3Uint16Val is a 3-space unsigned 16-bit vector (Vect3Uint16).
type Vect3Uint16Val struct{ X, Y, Z uint16 }

// Vect4Float32 is a 4-space float vector (Vect4Float).
type Vect4Float32 struct{ X, Y, Z, W float32 }
