package cachectl

// Driver identifies the cache backend a Conn talks to.
type Driver string

const (
	DriverRedis     Driver = "redis"
	DriverMemcached Driver = "memcached"
	DriverNATS      Driver = "nats"
	DriverSQL       Driver = "sql"
	DriverDynamo    Driver = "dynamodb"
	DriverFile      Driver = "file"
	DriverMemory    Driver = "memory"
)

// Drivers lists every supported backend in display order.
func Drivers() []Driver {
	return []Driver{DriverRedis, DriverMemcached, DriverNATS, DriverSQL, DriverDynamo, DriverFile, DriverMemory}
}

// ParseDriver maps a driver name to a Driver.
func ParseDriver(name string) (Driver, error) {
	for _, d := range Drivers() {
		if string(d) == name {
			return d, nil
		}
	}
	if name == "dynamo" {
		return DriverDynamo, nil
	}
	return "", invalidArgf("unknown driver %q", name)
}
