package expression

import "github.com/normanking/cortexguide/internal/avatar"

// emotionTables lists the weights each emotion drives. Shapes not listed
// rest at zero. Left/right pairs stay symmetric except for curious, whose
// single raised brow reads as a question.
var emotionTables = map[avatar.Emotion]map[Shape]float32{
	avatar.EmotionNeutral: {},

	avatar.EmotionHappy: {
		MouthSmileLeft:   0.45,
		MouthSmileRight:  0.45,
		CheekSquintLeft:  0.25,
		CheekSquintRight: 0.25,
		EyeSquintLeft:    0.15,
		EyeSquintRight:   0.15,
	},

	avatar.EmotionSad: {
		BrowInnerUp:     0.4,
		BrowDownLeft:    0.1,
		BrowDownRight:   0.1,
		MouthFrownLeft:  0.3,
		MouthFrownRight: 0.3,
		EyeSquintLeft:   0.1,
		EyeSquintRight:  0.1,
	},

	avatar.EmotionSurprised: {
		BrowInnerUp:      0.45,
		BrowOuterUpLeft:  0.35,
		BrowOuterUpRight: 0.35,
		EyeWideLeft:      0.4,
		EyeWideRight:     0.4,
		JawOpen:          0.2,
	},

	avatar.EmotionCurious: {
		BrowInnerUp:     0.2,
		BrowOuterUpLeft: 0.35,
		EyeWideLeft:     0.15,
		EyeWideRight:    0.15,
		MouthSmileLeft:  0.08,
		MouthSmileRight: 0.08,
	},

	avatar.EmotionContemplative: {
		BrowInnerUp:     0.25,
		EyeLookUpLeft:   0.3,
		EyeLookUpRight:  0.3,
		EyeSquintLeft:   0.1,
		EyeSquintRight:  0.1,
		MouthPressLeft:  0.12,
		MouthPressRight: 0.12,
	},

	avatar.EmotionSerious: {
		BrowDownLeft:    0.35,
		BrowDownRight:   0.35,
		EyeSquintLeft:   0.15,
		EyeSquintRight:  0.15,
		MouthPressLeft:  0.2,
		MouthPressRight: 0.2,
	},
}

// Table returns the weights for an emotion. Unknown emotions get the neutral table.
func Table(e avatar.Emotion) Weights {
	var w Weights
	for s, v := range emotionTables[e] {
		w.Set(s, v)
	}
	return w
}
