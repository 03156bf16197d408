package codec

// G.711 lookup tables, ported from the reference decoder/encoder tables.
// Decode tables are direct byte->sample lookups; encode uses the classic
// segment/exponent search against a bias constant, matching the ITU G.711
// reference algorithm.

var alawToPCM = [256]int16{
	-5504, -5248, -6016, -5760, -4480, -4224, -4992, -4736, -7552, -7296, -8064, -7808, -6528, -6272, -7040, -6784,
	-2752, -2624, -3008, -2880, -2240, -2112, -2496, -2368, -3776, -3648, -4032, -3904, -3264, -3136, -3520, -3392,
	-1376, -1312, -1504, -1440, -1120, -1056, -1248, -1184, -1888, -1824, -2016, -1952, -1632, -1568, -1760, -1696,
	-688, -656, -752, -720, -560, -528, -624, -592, -944, -912, -1008, -976, -816, -784, -880, -848,
	-22016, -20992, -24064, -23040, -17920, -16896, -19968, -18944, -30208, -29184, -32256, -31232, -26112, -25088, -28160, -27136,
	-11008, -10496, -12032, -11520, -8960, -8448, -9984, -9472, -15104, -14592, -16128, -15616, -13056, -12544, -14080, -13568,
	-5504, -5248, -6016, -5760, -4480, -4224, -4992, -4736, -7552, -7296, -8064, -7808, -6528, -6272, -7040, -6784,
	-2752, -2624, -3008, -2880, -2240, -2112, -2496, -2368, -3776, -3648, -4032, -3904, -3264, -3136, -3520, -3392,
	5504, 5248, 6016, 5760, 4480, 4224, 4992, 4736, 7552, 7296, 8064, 7808, 6528, 6272, 7040, 6784,
	2752, 2624, 3008, 2880, 2240, 2112, 2496, 2368, 3776, 3648, 4032, 3904, 3264, 3136, 3520, 3392,
	1376, 1312, 1504, 1440, 1120, 1056, 1248, 1184, 1888, 1824, 2016, 1952, 1632, 1568, 1760, 1696,
	688, 656, 752, 720, 560, 528, 624, 592, 944, 912, 1008, 976, 816, 784, 880, 848,
	22016, 20992, 24064, 23040, 17920, 16896, 19968, 18944, 30208, 29184, 32256, 31232, 26112, 25088, 28160, 27136,
	11008, 10496, 12032, 11520, 8960, 8448, 9984, 9472, 15104, 14592, 16128, 15616, 13056, 12544, 14080, 13568,
	5504, 5248, 6016, 5760, 4480, 4224, 4992, 4736, 7552, 7296, 8064, 7808, 6528, 6272, 7040, 6784,
	2752, 2624, 3008, 2880, 2240, 2112, 2496, 2368, 3776, 3648, 4032, 3904, 3264, 3136, 3520, 3392,
}

var ulawToPCM = [256]int16{
	-32124, -31100, -30076, -29052, -28028, -27004, -25980, -24956, -23932, -22908,
	-21884, -20860, -19836, -18812, -17788, -16764, -15996, -15484, -14972, -14460,
	-13948, -13436, -12924, -12412, -11900, -11388, -10876, -10364, -9852, -9340,
	-8828, -8316, -7932, -7676, -7420, -7164, -6908, -6652, -6396, -6140, -5884,
	-5628, -5372, -5116, -4860, -4604, -4348, -4092, -3900, -3772, -3644, -3516,
	-3388, -3260, -3132, -3004, -2876, -2748, -2620, -2492, -2364, -2236, -2108,
	-1980, -1884, -1820, -1756, -1692, -1628, -1564, -1500, -1436, -1372, -1308,
	-1244, -1180, -1116, -1052, -988, -924, -876, -844, -812, -780, -748, -716,
	-684, -652, -620, -588, -556, -524, -492, -460, -428, -396, -372, -356, -340,
	-324, -308, -292, -276, -260, -244, -228, -212, -196, -180, -164, -148, -132,
	-120, -112, -104, -96, -88, -80, -72, -64, -56, -48, -40, -32, -24, -16, -8, 0,
	32124, 31100, 30076, 29052, 28028, 27004, 25980, 24956, 23932, 22908, 21884,
	20860, 19836, 18812, 17788, 16764, 15996, 15484, 14972, 14460, 13948, 13436,
	12924, 12412, 11900, 11388, 10876, 10364, 9852, 9340, 8828, 8316, 7932, 7676,
	7420, 7164, 6908, 6652, 6396, 6140, 5884, 5628, 5372, 5116, 4860, 4604, 4348,
	4092, 3900, 3772, 3644, 3516, 3388, 3260, 3132, 3004, 2876, 2748, 2620, 2492,
	2364, 2236, 2108, 1980, 1884, 1820, 1756, 1692, 1628, 1564, 1500, 1436, 1372,
	1308, 1244, 1180, 1116, 1052, 988, 924, 876, 844, 812, 780, 748, 716, 684, 652,
	620, 588, 556, 524, 492, 460, 428, 396, 372, 356, 340, 324, 308, 292, 276,
	260, 244, 228, 212, 196, 180, 164, 148, 132, 120, 112, 104, 96, 88, 80, 72, 64,
	56, 48, 40, 32, 24, 16, 8, 0,
}

var ulawSegmentTable = [256]uint8{
	0, 0, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
}

const ulawBias int16 = 0x84

// decodeUlaw returns the linear PCM16 sample for a single u-law byte.
func decodeUlaw(b byte) int16 {
	return ulawToPCM[b]
}

// decodeAlaw returns the linear PCM16 sample for a single A-law byte.
func decodeAlaw(b byte) int16 {
	return alawToPCM[b]
}

// encodeUlaw compresses one linear PCM16 sample into a u-law byte.
func encodeUlaw(pcm int16) byte {
	var sign byte
	if pcm < 0 {
		sign = 0x80
		pcm = -pcm
	}
	if pcm > 32635 {
		pcm = 32635
	}
	pcm += ulawBias
	exponent := ulawSegmentTable[(pcm>>7)&0xFF]
	mantissa := byte((pcm >> (int16(exponent) + 3)) & 0x0F)
	return ^(sign | (exponent << 4) | mantissa)
}

// encodeAlaw compresses one linear PCM16 sample into an A-law byte.
func encodeAlaw(pcm int16) byte {
	if pcm < 0 {
		pcm = -pcm
	}
	if pcm > 32635 {
		pcm = 32635
	}

	var exponent int16
	if pcm >= 256 {
		exponent = 4
		for exponent < 8 {
			if pcm < (256 << uint(exponent)) {
				break
			}
			exponent++
		}
		exponent--
	} else {
		exponent = (pcm >> 4) & 0x0F
	}

	shift := exponent
	if shift < 1 {
		shift = 1
	}
	mantissa := (pcm >> uint(shift)) & 0x0F
	alaw := (exponent << 4) | mantissa
	return byte(alaw ^ 0x55)
}
