package analysis

// classNames is the fixed, ordered disease vocabulary per plant type.
// Order matches the output width of the corresponding classifier model.
var classNames = map[PlantType][]string{
	PlantTomato: {
		"Bacterial_spot",                  // 0
		"Early_blight",                    // 1
		"Late_blight",                     // 2
		"Leaf_Mold",                       // 3
		"Septoria_leaf_spot",              // 4
		"Tomato_Yellow_Leaf_Curl_Virus",   // 5
		"Tomato_mosaic_virus",             // 6
		"Healthy",                         // 7
	},
	PlantPotato: {
		"Early_blight",
		"Late_blight",
		"Healthy",
	},
	PlantPepper: {
		"Bacterial_spot",
		"Healthy",
	},
}

// ClassNames returns the ordered label list for a plant type.
func ClassNames(pt PlantType) ([]string, error) {
	labels, ok := classNames[pt]
	if !ok {
		return nil, ErrUnsupportedPlantType
	}
	return labels, nil
}

// ClassName resolves (plant type, class index) to a disease label.
func ClassName(pt PlantType, classID int) (string, error) {
	labels, err := ClassNames(pt)
	if err != nil {
		return "", err
	}
	if classID < 0 || classID >= len(labels) {
		return "", ErrInvalidClassIndex
	}
	return labels[classID], nil
}
