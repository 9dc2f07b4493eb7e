package remoteid

import "strconv"

var idTypeNames = [...]string{
	"None",
	"Serial Number",
	"CAA Registration ID",
	"UTM Assigned UUID",
	"Specific Session ID",
}

var uaTypeNames = [...]string{
	"None",
	"Aeroplane",
	"Helicopter or Multirotor",
	"Gyroplane",
	"Hybrid Lift",
	"Ornithopter",
	"Glider",
	"Kite",
	"Free Balloon",
	"Captive Balloon",
	"Airship",
	"Free Fall/Parachute",
	"Rocket",
	"Tethered Powered Aircraft",
	"Ground Obstacle",
	"Other",
}

var statusNames = [...]string{
	"Undeclared",
	"Ground",
	"Airborne",
	"Emergency",
	"Remote ID System Failure",
}

func lookup(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "Reserved (" + strconv.Itoa(int(v)) + ")"
}

// IDTypeName names a Basic ID id_type value.
func IDTypeName(v uint8) string { return lookup(idTypeNames[:], v) }

// UATypeName names a Basic ID ua_type value.
func UATypeName(v uint8) string { return lookup(uaTypeNames[:], v) }

// OperationalStatusName names a Location/Vector operational_status value.
func OperationalStatusName(v uint8) string { return lookup(statusNames[:], v) }
